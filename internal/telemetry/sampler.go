package telemetry

import (
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/stats"
)

// Metric identifies one smoothed telemetry series.
type Metric int

const (
	CPU Metric = iota
	Memory
	Disk
	Network

	metricCount
)

// Metrics lists every tracked metric in display order.
var Metrics = []Metric{CPU, Memory, Disk, Network}

func (m Metric) String() string {
	switch m {
	case CPU:
		return "cpu_percent"
	case Memory:
		return "memory_percent"
	case Disk:
		return "disk_mbyte_per_sec"
	case Network:
		return "network_mbit_per_sec"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of every smoothed value at one instant.
type Snapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskMBps      float64 `json:"disk_mbyte_per_sec"`
	NetworkMbps   float64 `json:"network_mbit_per_sec"`
}

// Sampler converts raw counters into smoothed per-metric values. It is not
// safe for concurrent use; the owning event loop is its only caller.
type Sampler struct {
	source Source
	alpha  float64
	now    func() time.Time
	logger *zap.Logger

	cpu     cpuCounter
	disk    rateCounter
	network rateCounter

	samples [metricCount]*stats.Ring[float64]
	fetches int
}

// NewSampler creates a sampler with one empty ring per metric.
func NewSampler(cfg config.SamplerConfig, source Source, now func() time.Time, logger *zap.Logger) *Sampler {
	if now == nil {
		now = time.Now
	}
	s := &Sampler{
		source: source,
		alpha:  cfg.DecayAlpha,
		now:    now,
		logger: logger,
	}
	for i := range s.samples {
		s.samples[i] = stats.NewRing[float64](cfg.SampleCount)
	}
	logger.Info("Sampler initialized",
		zap.Int("sample_count", cfg.SampleCount),
		zap.Float64("decay_alpha", cfg.DecayAlpha),
	)
	return s
}

// Fetch reads every metric once and pushes the derived values. A metric that
// fails to read is logged and skipped for this tick only. Returns the number
// of fetches performed so far, including this one.
func (s *Sampler) Fetch() int {
	now := s.now()

	s.record(CPU, func() (float64, error) {
		times, err := s.source.CPUTimes()
		if err != nil {
			return 0, err
		}
		return s.cpu.observe(times), nil
	})
	s.record(Memory, s.source.MemoryPercent)
	s.record(Disk, func() (float64, error) {
		bytes, err := s.source.DiskBytes()
		if err != nil {
			return 0, err
		}
		return megabytesPerSecond(s.disk.observe(bytes, now)), nil
	})
	s.record(Network, func() (float64, error) {
		bytes, err := s.source.NetworkBytes()
		if err != nil {
			return 0, err
		}
		return megabitsPerSecond(s.network.observe(bytes, now)), nil
	})

	s.fetches++
	s.publishAverages()

	s.logger.Debug("Fetched samples",
		zap.Int("fetch", s.fetches),
		zap.Float64("cpu", s.Average(CPU)),
		zap.Float64("memory", s.Average(Memory)),
		zap.Float64("disk", s.Average(Disk)),
		zap.Float64("network", s.Average(Network)),
	)
	return s.fetches
}

func (s *Sampler) record(metric Metric, read func() (float64, error)) {
	value, err := read()
	if err != nil {
		s.logger.Error("Metric fetch failed, keeping previous average",
			zap.Stringer("metric", metric),
			zap.Error(err),
		)
		fetchFailures.WithLabelValues(metric.String()).Inc()
		return
	}
	s.samples[metric].Push(value)
}

// Average returns the smoothed value of one metric.
func (s *Sampler) Average(metric Metric) float64 {
	if metric < 0 || metric >= metricCount {
		return 0
	}
	return s.samples[metric].ExponentialMovingAverage(s.alpha)
}

// Snapshot copies the current averages.
func (s *Sampler) Snapshot() Snapshot {
	return Snapshot{
		CPUPercent:    s.Average(CPU),
		MemoryPercent: s.Average(Memory),
		DiskMBps:      s.Average(Disk),
		NetworkMbps:   s.Average(Network),
	}
}

// Fetches returns how many fetch ticks have completed.
func (s *Sampler) Fetches() int { return s.fetches }

func (s *Sampler) publishAverages() {
	for _, m := range Metrics {
		metricAverage.WithLabelValues(m.String()).Set(s.Average(m))
	}
}
