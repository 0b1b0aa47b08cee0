package frame

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/infoband/internal/placement"
	"github.com/sanspareilsmyn/infoband/internal/telemetry"
)

// Reason says why a frame was rendered.
type Reason string

const (
	ReasonInitial  Reason = "initial"
	ReasonTick     Reason = "tick"
	ReasonRedraw   Reason = "redraw"
	ReasonMic      Reason = "mic"
	ReasonHotkey   Reason = "hotkey"
	ReasonPosition Reason = "position"
	ReasonDPI      Reason = "dpi"
	ReasonDisplay  Reason = "display"
	ReasonOffset   Reason = "offset"
	ReasonResume   Reason = "resume"
)

// Frame is everything a renderer needs to draw the overlay once.
type Frame struct {
	Seq             uint64             `json:"seq"`
	Timestamp       time.Time          `json:"timestamp"`
	Reason          Reason             `json:"reason"`
	Metrics         telemetry.Snapshot `json:"metrics"`
	MicMuted        bool               `json:"mic_muted"`
	Rect            placement.Rect     `json:"rect"`
	ScalePercent    int                `json:"scale_percent"`
	OffsetFromRight int                `json:"offset_from_right,omitempty"`
	Debug           bool               `json:"debug,omitempty"`
}

// ShowMicWarning reports whether the unmuted-microphone warning is visible.
func (f Frame) ShowMicWarning() bool { return !f.MicMuted }

// MarshalLogObject lets a frame be logged with zap.Object.
func (f Frame) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("seq", f.Seq)
	enc.AddString("reason", string(f.Reason))
	enc.AddFloat64("cpu_percent", f.Metrics.CPUPercent)
	enc.AddFloat64("memory_percent", f.Metrics.MemoryPercent)
	enc.AddFloat64("disk_mbyte_per_sec", f.Metrics.DiskMBps)
	enc.AddFloat64("network_mbit_per_sec", f.Metrics.NetworkMbps)
	enc.AddBool("mic_muted", f.MicMuted)
	enc.AddInt32("left", f.Rect.Left)
	enc.AddInt32("right", f.Rect.Right)
	enc.AddInt32("top", f.Rect.Top)
	enc.AddInt32("bottom", f.Rect.Bottom)
	enc.AddInt("scale_percent", f.ScalePercent)
	if f.Debug {
		enc.AddBool("debug", true)
	}
	return nil
}
