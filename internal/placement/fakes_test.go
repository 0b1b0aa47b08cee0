package placement_test

import (
	"errors"

	"github.com/sanspareilsmyn/infoband/internal/placement"
)

type element string

func (e element) Name() string { return string(e) }

type subscription struct {
	tray   placement.Element
	closed int
}

func (s *subscription) Close() error {
	s.closed++
	return nil
}

// fakeShell models a shell whose window handle changes on every restart.
type fakeShell struct {
	current    placement.Handle
	topmost    bool
	rect       placement.Rect
	dpi        uint32
	trayButton placement.Rect
	trayErr    error
	topmostErr error
	watchErr   error

	findCalls int
	watches   []*subscription
}

func newFakeShell() *fakeShell {
	return &fakeShell{
		current:    1,
		rect:       placement.Rect{Left: 0, Top: 1032, Right: 1920, Bottom: 1080},
		dpi:        96,
		trayButton: placement.Rect{Left: 1600, Top: 1032, Right: 1640, Bottom: 1080},
	}
}

func (s *fakeShell) restart() { s.current++ }

func (s *fakeShell) tray() placement.Element {
	return element("tray-" + string(rune('0'+s.current)))
}

func (s *fakeShell) FindTaskbar() (placement.Handle, placement.Element, error) {
	s.findCalls++
	return s.current, s.tray(), nil
}

func (s *fakeShell) check(h placement.Handle) error {
	if h != s.current {
		return placement.ErrInvalidHandle
	}
	return nil
}

func (s *fakeShell) IsTopmost(h placement.Handle) (bool, error) {
	if err := s.check(h); err != nil {
		return false, err
	}
	return s.topmost, s.topmostErr
}

func (s *fakeShell) TaskbarRect(h placement.Handle) (placement.Rect, error) {
	return s.rect, s.check(h)
}

func (s *fakeShell) DPI(h placement.Handle) (uint32, error) {
	return s.dpi, s.check(h)
}

func (s *fakeShell) FirstTrayButton(tray placement.Element) (placement.Rect, error) {
	if tray.Name() != s.tray().Name() {
		return placement.Rect{}, placement.ErrInvalidHandle
	}
	return s.trayButton, s.trayErr
}

func (s *fakeShell) WatchStructure(tray placement.Element, notify func()) (placement.Subscription, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	sub := &subscription{tray: tray}
	s.watches = append(s.watches, sub)
	return sub, nil
}

type fakeWindow struct {
	touches  int
	stacking []bool
	err      error
}

func (w *fakeWindow) Touch() error {
	if w.err != nil {
		return w.err
	}
	w.touches++
	return nil
}

func (w *fakeWindow) SetTopmost(topmost bool) error {
	if w.err != nil {
		return w.err
	}
	w.stacking = append(w.stacking, topmost)
	return nil
}

var errBoom = errors.New("boom")
