package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Window is the overlay's event loop. Any goroutine may Post to it; a single
// goroutine running Run owns the Controller and dispatches events in order.
type Window struct {
	logger *zap.Logger
	queue  chan Event
	done   chan struct{}
	once   sync.Once
}

func NewWindow(queueSize int, logger *zap.Logger) *Window {
	return &Window{
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
}

// Post enqueues ev, blocking while the queue is full. It fails once the
// event loop has exited.
func (w *Window) Post(ev Event) error {
	select {
	case <-w.done:
		return ErrWindowDestroyed
	default:
	}

	select {
	case w.queue <- ev:
		return nil
	case <-w.done:
		return ErrWindowDestroyed
	}
}

// Done is closed when the event loop exits.
func (w *Window) Done() <-chan struct{} { return w.done }

// Run creates the controller, dispatches the initial events ahead of anything
// already queued, then processes events until Destroy or ctx is cancelled.
// Cancelling ctx dispatches Destroy before returning ctx.Err().
func (w *Window) Run(ctx context.Context, create func(Poster) (*Controller, error)) error {
	defer w.once.Do(func() { close(w.done) })

	c, err := create(w)
	if err != nil {
		w.logger.Error("Failed to create overlay", zap.Error(err))
		if errors.Is(err, ErrCreateFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	for _, ev := range c.InitialEvents() {
		if c.Dispatch(ev) == Quit {
			return nil
		}
	}

	w.logger.Info("Overlay event loop started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Context cancelled, destroying overlay")
			c.Dispatch(Destroy{})
			return ctx.Err()
		case ev := <-w.queue:
			queueDepth.Set(float64(len(w.queue)))
			if c.Dispatch(ev) == Quit {
				w.logger.Info("Overlay event loop stopped")
				return nil
			}
		}
	}
}
