package watch

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/frame"
	"github.com/sanspareilsmyn/infoband/internal/publish"
)

var (
	frameValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "infoband_watch_frame_value",
			Help: "Metric value carried by the last consumed frame.",
		},
		[]string{"metric"},
	)
	thresholdViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infoband_watch_threshold_violations_total",
			Help: "Number of consumed frames that exceeded a configured threshold.",
		},
		[]string{"metric"},
	)
	frameGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "infoband_watch_frame_gaps_total",
			Help: "Number of times the frame sequence skipped ahead.",
		},
	)
)

const metricMicUnmuted = "mic_unmuted"

// Violation is a single threshold breach found in a frame.
type Violation struct {
	Metric    string
	Actual    float64
	Threshold float64
}

// Alerter checks consumed frames against the configured thresholds.
type Alerter struct {
	cfg    config.WatchConfig
	logger *zap.Logger
	// last sequence number seen per publishing source
	lastSeq map[string]uint64
}

func NewAlerter(cfg config.WatchConfig, logger *zap.Logger) *Alerter {
	logger.Debug("Alerter initialized",
		zap.Bool("cpu", cfg.Thresholds.CPUPercentMax != nil),
		zap.Bool("memory", cfg.Thresholds.MemoryPercentMax != nil),
		zap.Bool("disk", cfg.Thresholds.DiskMBpsMax != nil),
		zap.Bool("network", cfg.Thresholds.NetworkMbpsMax != nil),
		zap.Bool("mic", cfg.AlertUnmutedMic),
	)
	return &Alerter{cfg: cfg, logger: logger, lastSeq: make(map[string]uint64)}
}

// Handle is a subscriber handler: it looks for lost frames, checks the
// frame and never fails.
func (a *Alerter) Handle(d publish.Delivery) error {
	a.trackSequence(d)
	a.Check(d.Frame)
	return nil
}

// trackSequence reports a gap when a frame skips ahead of the last sequence
// number seen from the same source. Sources publish to a single partition
// each, so their frames arrive in order; frames without a source key are
// tracked per partition. A number at or below the last one means the
// overlay restarted and only resets tracking.
func (a *Alerter) trackSequence(d publish.Delivery) {
	source := d.Source
	if source == "" {
		source = fmt.Sprintf("partition-%d", d.Partition)
	}
	seq := d.Frame.Seq
	last, ok := a.lastSeq[source]
	a.lastSeq[source] = seq
	if !ok || seq <= last+1 {
		return
	}
	frameGaps.Inc()
	a.logger.Warn("Gap in frame sequence",
		zap.String("source", source),
		zap.Int("partition", d.Partition),
		zap.Uint64("expected", last+1),
		zap.Uint64("got", seq),
	)
}

// Check updates the frame gauges, logs the frame and returns every violated
// threshold.
func (a *Alerter) Check(f frame.Frame) []Violation {
	sugar := a.logger.Sugar()

	values := []struct {
		metric    string
		actual    float64
		threshold *float64
	}{
		{"cpu", f.Metrics.CPUPercent, a.cfg.Thresholds.CPUPercentMax},
		{"memory", f.Metrics.MemoryPercent, a.cfg.Thresholds.MemoryPercentMax},
		{"disk", f.Metrics.DiskMBps, a.cfg.Thresholds.DiskMBpsMax},
		{"network", f.Metrics.NetworkMbps, a.cfg.Thresholds.NetworkMbpsMax},
	}

	var violations []Violation
	for _, v := range values {
		frameValue.WithLabelValues(v.metric).Set(v.actual)
		if v.threshold == nil || v.actual <= *v.threshold {
			continue
		}
		sugar.Warnw("Threshold violation",
			zap.String("metric", v.metric),
			zap.Uint64("seq", f.Seq),
			zap.Float64("actual", v.actual),
			zap.Float64("threshold", *v.threshold),
		)
		thresholdViolations.WithLabelValues(v.metric).Inc()
		violations = append(violations, Violation{Metric: v.metric, Actual: v.actual, Threshold: *v.threshold})
	}

	if a.cfg.AlertUnmutedMic && f.ShowMicWarning() {
		sugar.Warnw("Microphone is unmuted", zap.Uint64("seq", f.Seq))
		thresholdViolations.WithLabelValues(metricMicUnmuted).Inc()
		violations = append(violations, Violation{Metric: metricMicUnmuted, Actual: 1})
	}

	sugar.Infow("Frame processed",
		zap.Object("frame", f),
		zap.Int("violations", len(violations)),
	)
	return violations
}
