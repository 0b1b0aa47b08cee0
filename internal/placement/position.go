package placement

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Logical width reserved left of the screen midpoint for the mic warning.
const micWarningWidth = 78

// Position computes the overlay rectangle from the taskbar and tray. Every
// update preserves the previous value when it fails.
type Position struct {
	ref    *Reference
	logger *zap.Logger

	scale           Scale
	taskbar         Rect
	trayLeft        int32
	hasTray         bool
	offsetFromRight int
	rect            Rect
}

func NewPosition(ref *Reference, logger *zap.Logger) *Position {
	return &Position{ref: ref, logger: logger, scale: 1}
}

// Get returns the last successfully computed rectangle and scale.
func (p *Position) Get() (Rect, Scale) { return p.rect, p.scale }

// SetDPI updates the scale factor and returns it.
func (p *Position) SetDPI(dpi uint32) Scale {
	p.scale = ScaleForDPI(dpi)
	return p.scale
}

// SetOffsetFromRight anchors the right edge a fixed logical distance from the
// taskbar's right edge instead of at the tray. Zero restores tray anchoring.
func (p *Position) SetOffsetFromRight(px int) {
	if px < 0 {
		px = 0
	}
	p.offsetFromRight = px
}

// OffsetFromRight returns the offset in effect, after clamping.
func (p *Position) OffsetFromRight() int { return p.offsetFromRight }

// UpdateTaskbarPosition re-reads the taskbar rectangle and DPI.
func (p *Position) UpdateTaskbarPosition() error {
	var (
		rect Rect
		dpi  uint32
	)
	err := p.ref.Do(func(h Handle) error {
		var err error
		if rect, err = p.ref.Shell().TaskbarRect(h); err != nil {
			return err
		}
		dpi, err = p.ref.Shell().DPI(h)
		return err
	})
	if err != nil {
		p.logger.Error("Update taskbar position failed, preserving old position", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTaskbarRect, err)
	}
	p.taskbar = rect
	p.SetDPI(dpi)
	return nil
}

// UpdateTrayPosition re-reads the left edge of the first tray button. An
// empty tray falls back to the taskbar's right edge.
func (p *Position) UpdateTrayPosition() error {
	var button Rect
	err := p.ref.DoTray(func(tray Element) error {
		var err error
		button, err = p.ref.Shell().FirstTrayButton(tray)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		p.logger.Debug("No tray buttons found, anchoring to taskbar edge")
		p.hasTray = false
		return nil
	case err != nil:
		p.logger.Error("Update tray left edge failed, preserving old position", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTrayPosition, err)
	}
	p.trayLeft, p.hasTray = button.Left, true
	return nil
}

// Recompute derives the overlay rectangle and reports whether it changed. An
// empty result is rejected and the previous rectangle kept.
func (p *Position) Recompute() (bool, error) {
	next := p.compute()
	if next.Empty() {
		p.logger.Error("Update window position failed, preserving old position",
			zap.Int32("left", next.Left),
			zap.Int32("right", next.Right),
			zap.Int32("top", next.Top),
			zap.Int32("bottom", next.Bottom),
		)
		return false, ErrEmptyRect
	}
	if next == p.rect {
		return false, nil
	}
	p.rect = next
	p.logger.Debug("Window position updated",
		zap.Int32("left", next.Left),
		zap.Int32("right", next.Right),
		zap.Int32("top", next.Top),
		zap.Int32("bottom", next.Bottom),
		zap.Int("scale_percent", p.scale.Percent()),
	)
	return true, nil
}

func (p *Position) compute() Rect {
	tb := p.taskbar
	midpoint := tb.Left + (tb.Right-tb.Left)/2

	right := tb.Right
	switch {
	case p.offsetFromRight > 0:
		right = tb.Right - p.scale.Px(p.offsetFromRight)
	case p.hasTray:
		right = p.trayLeft
	}

	return Rect{
		Left:   midpoint - p.scale.Px(micWarningWidth)/2,
		Top:    tb.Top,
		Right:  right,
		Bottom: tb.Bottom,
	}
}
