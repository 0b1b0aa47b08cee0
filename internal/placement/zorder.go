package placement

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// State is the last stacking order applied to the overlay window.
type State int

const (
	StateUnknown State = iota
	StateTopmost
	StateBottommost
)

func (s State) String() string {
	switch s {
	case StateTopmost:
		return "topmost"
	case StateBottommost:
		return "bottommost"
	default:
		return "unknown"
	}
}

// ZOrder keeps the overlay window stacked like the taskbar: topmost while the
// taskbar is topmost, at the bottom otherwise.
type ZOrder struct {
	ref     *Reference
	window  Window
	logger  *zap.Logger
	state   State
	touched bool
}

func NewZOrder(ref *Reference, window Window, logger *zap.Logger) *ZOrder {
	return &ZOrder{ref: ref, window: window, logger: logger}
}

// State returns the last applied stacking order.
func (z *ZOrder) State() State { return z.state }

// Touch issues the single inert stacking call the window system needs
// before the first real one takes effect. Later calls do nothing.
func (z *ZOrder) Touch() error {
	if z.touched {
		return nil
	}
	if err := z.window.Touch(); err != nil {
		z.logger.Error("Touching window failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTouchFailed, err)
	}
	z.touched = true
	return nil
}

// Update matches the taskbar's topmost bit. The stacking call is skipped
// when the recorded state already matches. On failure the recorded state is
// left untouched.
func (z *ZOrder) Update() error {
	var topmost bool
	err := z.ref.Do(func(h Handle) error {
		var err error
		topmost, err = z.ref.Shell().IsTopmost(h)
		return err
	})
	if err != nil {
		z.logger.Error("Z-order update failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStackingQuery, err)
	}

	want := StateBottommost
	if topmost {
		want = StateTopmost
	}
	if want == z.state {
		z.logger.Debug("Z-order already matches taskbar", zap.Stringer("state", want))
		return nil
	}

	z.logger.Debug("Setting z-order", zap.Bool("topmost", topmost))
	if err := z.window.SetTopmost(topmost); err != nil {
		z.logger.Error("Z-order update failed", zap.Bool("topmost", topmost), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStackingUpdate, err)
	}
	z.state = want
	stackingUpdates.WithLabelValues(strconv.FormatBool(topmost)).Inc()
	return nil
}
