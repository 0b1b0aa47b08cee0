package placement_test

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/infoband/internal/placement"
)

func newZOrder(t *testing.T) (*placement.ZOrder, *placement.Reference, *fakeShell, *fakeWindow) {
	t.Helper()
	shell := newFakeShell()
	ref, err := placement.NewReference(shell, func() {}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewReference: %v", err)
	}
	win := &fakeWindow{}
	return placement.NewZOrder(ref, win, zaptest.NewLogger(t)), ref, shell, win
}

func TestZOrder_UpdateIsIdempotent(t *testing.T) {
	z, _, shell, win := newZOrder(t)
	if z.State() != placement.StateUnknown {
		t.Fatalf("initial state = %v; want unknown", z.State())
	}

	shell.topmost = true
	for i := 0; i < 3; i++ {
		if err := z.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if len(win.stacking) != 1 || !win.stacking[0] {
		t.Fatalf("stacking calls = %v; want [true]", win.stacking)
	}

	shell.topmost = false
	if err := z.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(win.stacking) != 2 || win.stacking[1] {
		t.Fatalf("stacking calls = %v; want [true false]", win.stacking)
	}
	if z.State() != placement.StateBottommost {
		t.Fatalf("state = %v; want bottommost", z.State())
	}
}

func TestZOrder_UnknownStateAlwaysApplies(t *testing.T) {
	z, _, _, win := newZOrder(t)
	// Taskbar not topmost: the first update must still push the window down.
	if err := z.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(win.stacking) != 1 || win.stacking[0] {
		t.Fatalf("stacking calls = %v; want [false]", win.stacking)
	}
}

func TestZOrder_TouchOnce(t *testing.T) {
	z, _, _, win := newZOrder(t)
	for i := 0; i < 3; i++ {
		if err := z.Touch(); err != nil {
			t.Fatalf("Touch: %v", err)
		}
	}
	if win.touches != 1 {
		t.Fatalf("touches = %d; want 1", win.touches)
	}
}

func TestZOrder_RecoversFromInvalidHandle(t *testing.T) {
	z, ref, shell, win := newZOrder(t)
	first := shell.watches[0]

	shell.restart()
	shell.topmost = true
	if err := z.Update(); err != nil {
		t.Fatalf("Update after shell restart: %v", err)
	}

	if shell.findCalls != 2 {
		t.Fatalf("FindTaskbar called %d times; want 2", shell.findCalls)
	}
	if ref.Handle() != 2 {
		t.Fatalf("handle = %d; want 2", ref.Handle())
	}
	if first.closed != 1 {
		t.Fatalf("old tray watcher closed %d times; want 1", first.closed)
	}
	if len(shell.watches) != 2 || shell.watches[1].tray.Name() != ref.Tray().Name() {
		t.Fatalf("tray watcher not re-registered on the new element")
	}
	if len(win.stacking) != 1 || !win.stacking[0] {
		t.Fatalf("stacking calls = %v; want [true]", win.stacking)
	}
}

func TestZOrder_FailurePreservesState(t *testing.T) {
	z, _, shell, win := newZOrder(t)
	shell.topmost = true
	if err := z.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}

	shell.topmost = false
	shell.topmostErr = errBoom
	if err := z.Update(); !errors.Is(err, placement.ErrStackingQuery) {
		t.Fatalf("err = %v; want ErrStackingQuery", err)
	}
	if z.State() != placement.StateTopmost {
		t.Fatalf("state = %v; want topmost preserved", z.State())
	}

	shell.topmostErr = nil
	win.err = errBoom
	if err := z.Update(); !errors.Is(err, placement.ErrStackingUpdate) {
		t.Fatalf("err = %v; want ErrStackingUpdate", err)
	}
	if z.State() != placement.StateTopmost {
		t.Fatalf("state = %v; want topmost preserved", z.State())
	}

	// Once the window recovers the pending change is applied.
	win.err = nil
	if err := z.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if z.State() != placement.StateBottommost {
		t.Fatalf("state = %v; want bottommost", z.State())
	}
}

func TestReference_WatchFailureIsNotFatal(t *testing.T) {
	shell := newFakeShell()
	shell.watchErr = errBoom
	ref, err := placement.NewReference(shell, func() {}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewReference: %v", err)
	}
	if err := ref.Close(); err != nil {
		t.Fatalf("Close without watcher: %v", err)
	}
}

func TestReference_CloseUnregistersOnce(t *testing.T) {
	shell := newFakeShell()
	ref, err := placement.NewReference(shell, func() {}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewReference: %v", err)
	}
	_ = ref.Close()
	_ = ref.Close()
	if shell.watches[0].closed != 1 {
		t.Fatalf("watcher closed %d times; want 1", shell.watches[0].closed)
	}
}
