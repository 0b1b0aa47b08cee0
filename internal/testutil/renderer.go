package testutil

import (
	"sync"
	"time"

	"github.com/sanspareilsmyn/infoband/internal/frame"
)

// RecordingRenderer keeps every frame it is asked to render.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames []frame.Frame
	Err    error
}

func (r *RecordingRenderer) Render(f frame.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return r.Err
}

// Frames returns a copy of the rendered frames in order.
func (r *RecordingRenderer) Frames() []frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]frame.Frame(nil), r.frames...)
}

// Reasons returns the reason of each rendered frame in order.
func (r *RecordingRenderer) Reasons() []frame.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	reasons := make([]frame.Reason, len(r.frames))
	for i, f := range r.frames {
		reasons[i] = f.Reason
	}
	return reasons
}

// Count returns how many frames were rendered for reason.
func (r *RecordingRenderer) Count(reason frame.Reason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if f.Reason == reason {
			n++
		}
	}
	return n
}

// WaitFor polls until a frame matching match has been rendered or timeout
// elapses.
func (r *RecordingRenderer) WaitFor(timeout time.Duration, match func(frame.Frame) bool) (frame.Frame, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, f := range r.Frames() {
			if match(f) {
				return f, true
			}
		}
		if time.Now().After(deadline) {
			return frame.Frame{}, false
		}
		time.Sleep(time.Millisecond)
	}
}
