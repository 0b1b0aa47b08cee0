package telemetry

import "errors"

var (
	ErrSourceInit         = errors.New("failed to open counter source")
	ErrCounterUnavailable = errors.New("counter not reported by the system")
	ErrCPURead            = errors.New("failed to read cpu times")
	ErrMemoryRead         = errors.New("failed to read memory usage")
	ErrDiskRead           = errors.New("failed to read disk counters")
	ErrNetworkRead        = errors.New("failed to read network counters")
)
