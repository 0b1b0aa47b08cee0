package render

import (
	"errors"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/frame"
)

// Renderer draws one frame. It is called from the event loop and should not
// block for long.
type Renderer interface {
	Render(f frame.Frame) error
}

// LogRenderer writes every frame to a structured log.
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) Render(f frame.Frame) error {
	if f.Debug {
		r.logger.Info("Rendered frame", zap.Object("frame", f))
		return nil
	}
	r.logger.Debug("Rendered frame", zap.Object("frame", f))
	return nil
}

// Multi renders each frame to every renderer in order. A failing renderer
// does not stop the others.
type Multi []Renderer

func (m Multi) Render(f frame.Frame) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
