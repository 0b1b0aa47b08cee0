package timer

import (
	"time"

	"go.uber.org/zap"
)

// ID identifies a timer slot within one window.
type ID int

// Spec describes one timer slot.
type Spec struct {
	ID        ID
	Name      string
	Interval  time.Duration
	Tolerance time.Duration
	Recurring bool
}

// Stopper cancels a scheduled callback. Stop reports whether the call
// prevented the callback from running.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f on another goroutine once d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// Runtime schedules callbacks on the Go runtime timer heap.
type Runtime struct{}

func (Runtime) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// FireFunc delivers an expiry to the owning event loop. It runs on the
// scheduler's goroutine and must only enqueue.
type FireFunc func(id ID, gen uint64)

// Timer is a cancellable, reschedulable slot. All methods must be called from
// the owning event loop; the scheduler goroutine only invokes the FireFunc
// with values captured at scheduling time.
type Timer struct {
	spec   Spec
	sched  Scheduler
	fire   FireFunc
	logger *zap.Logger

	gen     uint64
	pending Stopper
	running bool
}

// New creates an idle timer slot.
func New(spec Spec, sched Scheduler, fire FireFunc, logger *zap.Logger) *Timer {
	logger = logger.With(zap.String("timer", spec.Name))
	logger.Debug("Timer slot created",
		zap.Duration("interval", spec.Interval),
		zap.Duration("tolerance", spec.Tolerance),
		zap.Bool("recurring", spec.Recurring),
	)
	return &Timer{spec: spec, sched: sched, fire: fire, logger: logger}
}

func (t *Timer) ID() ID { return t.spec.ID }

func (t *Timer) Name() string { return t.spec.Name }

// Running reports whether the slot has an outstanding expiry.
func (t *Timer) Running() bool { return t.running }

// Reschedule cancels any pending expiry and starts a fresh interval. A burst
// of calls yields a single fire one interval after the last call.
func (t *Timer) Reschedule() {
	t.cancel()
	t.gen++
	gen, id, fire := t.gen, t.spec.ID, t.fire
	t.pending = t.sched.AfterFunc(t.spec.Interval, func() { fire(id, gen) })
	t.running = true
}

// Kill cancels the slot. Killing an idle slot is a no-op.
func (t *Timer) Kill() {
	if !t.running {
		return
	}
	t.cancel()
	t.gen++
	t.running = false
	t.logger.Debug("Timer killed")
}

// Accept validates a dequeued fire. Fires from a cancelled or superseded
// schedule are rejected. A one-shot slot becomes idle; a recurring slot is
// re-armed.
func (t *Timer) Accept(gen uint64) bool {
	if !t.running || gen != t.gen {
		t.logger.Debug("Dropping stale timer fire",
			zap.Uint64("gen", gen),
			zap.Uint64("current_gen", t.gen),
			zap.Bool("running", t.running),
		)
		return false
	}
	t.pending = nil
	if t.spec.Recurring {
		t.Reschedule()
		return true
	}
	t.running = false
	return true
}

func (t *Timer) cancel() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
