package config

import "errors"

var (
	ErrReadingConfigFile    = errors.New("failed to read config file")
	ErrUnmarshallingConfig  = errors.New("failed to unmarshal config")
	ErrConfigFileMissing    = errors.New("config file not found")
	ErrInvalidFetchInterval = errors.New("sampler fetchInterval must be positive")
	ErrInvalidRedrawEveryN  = errors.New("sampler redrawEveryN must be positive")
	ErrInvalidSampleCount   = errors.New("sampler sampleCount must be positive")
	ErrInvalidDecayAlpha    = errors.New("sampler decayAlpha must be in (0, 1]")
	ErrInvalidDebounce      = errors.New("timer debounce intervals must be positive")
	ErrQueueTooSmall        = errors.New("overlay queueSize is too small")
	ErrInvalidDPI           = errors.New("desktop dpi must be positive")
	ErrEmptyKafkaBrokers    = errors.New("publish brokers list cannot be empty when publishing is enabled")
	ErrEmptyKafkaTopic      = errors.New("publish topic cannot be empty when publishing is enabled")
	ErrEmptySourceID        = errors.New("publish sourceId cannot be empty when publishing is enabled")
	ErrEmptyMetricsAddr     = errors.New("metrics listenAddr cannot be empty when metrics are enabled")
)
