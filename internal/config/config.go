package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultFetchInterval   = 1 * time.Second
	defaultRedrawEveryN    = 5
	defaultSampleCount     = 8
	defaultDecayAlpha      = 0.631 // 0.631^5 ~= 0.1, so the last 5 samples carry 90% of the weight
	defaultProcPath        = "/proc"
	defaultSysPath         = "/sys"
	defaultFetchTolerance  = 1 * time.Second
	defaultTrayDebounce    = 10 * time.Millisecond
	defaultZOrderDebounce  = 50 * time.Millisecond
	defaultMicDebounce     = 10 * time.Millisecond
	defaultDebounceSlack   = 32 * time.Millisecond
	defaultQueueSize       = 64
	defaultMicHotkey       = true
	defaultScreenWidth     = 1920
	defaultScreenHeight    = 1080
	defaultTaskbarHeight   = 48
	defaultTrayWidth       = 320
	defaultDPI             = 96
	defaultPublishTopic    = "infoband-frames"
	defaultPublishGroupID  = "infoband-watch"
	defaultMetricsAddr     = ":9464"
	defaultAlertUnmutedMic = false
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultLogFileEnabled  = false
	defaultLogDirectory    = "log"
	defaultLogFilename     = "infoband.log"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 7
	defaultLogCompress     = false
	defaultPublishEnabled  = false
	defaultMetricsEnabled  = false
	defaultKeepAwake       = false
	defaultDebugPaint      = false
	defaultOffsetFromRight = 0

	// Environment variable prefix
	envPrefix = "INFOBAND"
)

type Config struct {
	Sampler SamplerConfig `mapstructure:"sampler"`
	Timers  TimersConfig  `mapstructure:"timers"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	Desktop DesktopConfig `mapstructure:"desktop"`
	Publish PublishConfig `mapstructure:"publish"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type SamplerConfig struct {
	FetchInterval time.Duration `mapstructure:"fetchInterval"`
	RedrawEveryN  int           `mapstructure:"redrawEveryN"` // render on every Nth fetch
	SampleCount   int           `mapstructure:"sampleCount"`
	DecayAlpha    float64       `mapstructure:"decayAlpha"`
	ProcPath      string        `mapstructure:"procPath"`
	SysPath       string        `mapstructure:"sysPath"`
}

type TimersConfig struct {
	FetchTolerance       time.Duration `mapstructure:"fetchTolerance"`
	TrayPositionDebounce time.Duration `mapstructure:"trayPositionDebounce"`
	ZOrderDebounce       time.Duration `mapstructure:"zOrderDebounce"`
	MicStateDebounce     time.Duration `mapstructure:"micStateDebounce"`
	DebounceTolerance    time.Duration `mapstructure:"debounceTolerance"`
}

type OverlayConfig struct {
	QueueSize              int  `mapstructure:"queueSize"`
	OffsetFromRight        int  `mapstructure:"offsetFromRight"` // unscaled pixels, 0 = align to tray
	MicHotkey              bool `mapstructure:"micHotkey"`
	KeepAwakeWhileUnlocked bool `mapstructure:"keepAwakeWhileUnlocked"`
	DebugPaint             bool `mapstructure:"debugPaint"`
}

// DesktopConfig describes the geometry reported by the headless desktop backend.
type DesktopConfig struct {
	ScreenWidth   int `mapstructure:"screenWidth"`
	ScreenHeight  int `mapstructure:"screenHeight"`
	TaskbarHeight int `mapstructure:"taskbarHeight"`
	TrayWidth     int `mapstructure:"trayWidth"`
	DPI           int `mapstructure:"dpi"`
}

type PublishConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"groupId"` // consumer group of infoband-watch

	// SourceID keys every published frame, keeping one overlay's frames on
	// one partition in order. Defaults to the host name.
	SourceID string `mapstructure:"sourceId"`
}

// WatchConfig holds the alert thresholds applied by infoband-watch. A nil
// threshold is not checked.
type WatchConfig struct {
	Thresholds      WatchThresholds `mapstructure:"thresholds"`
	AlertUnmutedMic bool            `mapstructure:"alertUnmutedMic"`
}

type WatchThresholds struct {
	CPUPercentMax    *float64 `mapstructure:"cpuPercentMax"`
	MemoryPercentMax *float64 `mapstructure:"memoryPercentMax"`
	DiskMBpsMax      *float64 `mapstructure:"diskMBpsMax"`
	NetworkMbpsMax   *float64 `mapstructure:"networkMbpsMax"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listenAddr"`
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`
}

// Load builds the configuration from defaults, the optional config file and
// INFOBAND_* environment variables, then validates it.
// An empty configPath means "defaults and environment only".
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults are constants; failing here means they are inconsistent.
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return cfg
}

func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sampler.fetchInterval", defaultFetchInterval)
	v.SetDefault("sampler.redrawEveryN", defaultRedrawEveryN)
	v.SetDefault("sampler.sampleCount", defaultSampleCount)
	v.SetDefault("sampler.decayAlpha", defaultDecayAlpha)
	v.SetDefault("sampler.procPath", defaultProcPath)
	v.SetDefault("sampler.sysPath", defaultSysPath)

	v.SetDefault("timers.fetchTolerance", defaultFetchTolerance)
	v.SetDefault("timers.trayPositionDebounce", defaultTrayDebounce)
	v.SetDefault("timers.zOrderDebounce", defaultZOrderDebounce)
	v.SetDefault("timers.micStateDebounce", defaultMicDebounce)
	v.SetDefault("timers.debounceTolerance", defaultDebounceSlack)

	v.SetDefault("overlay.queueSize", defaultQueueSize)
	v.SetDefault("overlay.offsetFromRight", defaultOffsetFromRight)
	v.SetDefault("overlay.micHotkey", defaultMicHotkey)
	v.SetDefault("overlay.keepAwakeWhileUnlocked", defaultKeepAwake)
	v.SetDefault("overlay.debugPaint", defaultDebugPaint)

	v.SetDefault("desktop.screenWidth", defaultScreenWidth)
	v.SetDefault("desktop.screenHeight", defaultScreenHeight)
	v.SetDefault("desktop.taskbarHeight", defaultTaskbarHeight)
	v.SetDefault("desktop.trayWidth", defaultTrayWidth)
	v.SetDefault("desktop.dpi", defaultDPI)

	v.SetDefault("publish.enabled", defaultPublishEnabled)
	v.SetDefault("publish.topic", defaultPublishTopic)
	v.SetDefault("publish.groupId", defaultPublishGroupID)
	v.SetDefault("publish.sourceId", defaultSourceID())
	v.SetDefault("watch.alertUnmutedMic", defaultAlertUnmutedMic)
	v.SetDefault("metrics.enabled", defaultMetricsEnabled)
	v.SetDefault("metrics.listenAddr", defaultMetricsAddr)

	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

func defaultSourceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "infoband"
}

func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, fs.ErrNotExist) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Sampler.FetchInterval <= 0 {
		return ErrInvalidFetchInterval
	}
	if cfg.Sampler.RedrawEveryN <= 0 {
		return ErrInvalidRedrawEveryN
	}
	if cfg.Sampler.SampleCount <= 0 {
		return ErrInvalidSampleCount
	}
	if cfg.Sampler.DecayAlpha <= 0 || cfg.Sampler.DecayAlpha > 1 {
		return ErrInvalidDecayAlpha
	}
	if cfg.Timers.TrayPositionDebounce <= 0 || cfg.Timers.ZOrderDebounce <= 0 || cfg.Timers.MicStateDebounce <= 0 {
		return ErrInvalidDebounce
	}
	if cfg.Overlay.QueueSize < minQueueSize {
		return ErrQueueTooSmall
	}
	if cfg.Desktop.DPI <= 0 {
		return ErrInvalidDPI
	}
	if cfg.Publish.Enabled {
		if len(cfg.Publish.Brokers) == 0 {
			return ErrEmptyKafkaBrokers
		}
		if cfg.Publish.Topic == "" {
			return ErrEmptyKafkaTopic
		}
		if cfg.Publish.SourceID == "" {
			return ErrEmptySourceID
		}
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "" {
		return ErrEmptyMetricsAddr
	}
	return nil
}

// minQueueSize leaves room for a burst of device and shell notifications.
const minQueueSize = 8
