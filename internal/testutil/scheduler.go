package testutil

import (
	"sync"
	"time"

	"github.com/sanspareilsmyn/infoband/internal/timer"
)

// FakeScheduler is a manual clock for timer tests. Callbacks run
// synchronously inside Advance, in due order.
type FakeScheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	s       *FakeScheduler
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewFakeScheduler creates a scheduler whose clock starts at start.
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{now: start}
}

func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) timer.Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.pending = append(s.pending, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the fake clock's current time.
func (s *FakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by d, firing every callback that comes due.
// Returns the number of callbacks fired.
func (s *FakeScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	fired := 0
	for {
		next := s.nextDueLocked(target)
		if next == nil {
			break
		}
		next.fired = true
		s.now = next.at
		s.mu.Unlock()
		next.f()
		fired++
		s.mu.Lock()
	}
	s.now = target
	s.compactLocked()
	s.mu.Unlock()
	return fired
}

// Pending returns the number of callbacks that are scheduled and not stopped.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *FakeScheduler) nextDueLocked(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range s.pending {
		if t.stopped || t.fired || t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (s *FakeScheduler) compactLocked() {
	live := s.pending[:0]
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.pending = live
}
