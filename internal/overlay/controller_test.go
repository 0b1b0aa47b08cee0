package overlay_test

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/desktop"
	"github.com/sanspareilsmyn/infoband/internal/frame"
	"github.com/sanspareilsmyn/infoband/internal/mic"
	"github.com/sanspareilsmyn/infoband/internal/overlay"
	"github.com/sanspareilsmyn/infoband/internal/placement"
	"github.com/sanspareilsmyn/infoband/internal/telemetry"
	"github.com/sanspareilsmyn/infoband/internal/testutil"
)

// queuePoster collects posted events so the test goroutine can dispatch them.
type queuePoster struct {
	mu     sync.Mutex
	events []overlay.Event
}

func (q *queuePoster) Post(ev overlay.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return nil
}

func (q *queuePoster) drain() []overlay.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

func (q *queuePoster) count(kind overlay.Kind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, ev := range q.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

type awakeRecorder struct {
	calls []bool
}

func (r *awakeRecorder) SetKeepAwake(awake bool) error {
	r.calls = append(r.calls, awake)
	return nil
}

type harness struct {
	t        *testing.T
	cfg      *config.Config
	shell    *desktop.Shell
	window   *desktop.Window
	mics     *mic.MemoryDevices
	source   *testutil.Source
	renderer *testutil.RecordingRenderer
	sched    *testutil.FakeScheduler
	awake    *awakeRecorder
	poster   *queuePoster
	c        *overlay.Controller
}

func newHarness(t *testing.T, configure func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	if configure != nil {
		configure(cfg)
	}
	logger := zaptest.NewLogger(t)
	return &harness{
		t:        t,
		cfg:      cfg,
		shell:    desktop.NewShell(cfg.Desktop, logger),
		window:   desktop.NewWindow(logger),
		mics:     mic.NewMemoryDevices(),
		source:   &testutil.Source{CPUStep: telemetry.CPUTimes{Idle: 60, Kernel: 20, User: 20}, Memory: 40},
		renderer: &testutil.RecordingRenderer{},
		sched:    testutil.NewFakeScheduler(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		awake:    &awakeRecorder{},
		poster:   &queuePoster{},
	}
}

// start creates the controller and dispatches the initial events.
func (h *harness) start() {
	h.t.Helper()
	c, err := overlay.NewController(h.cfg, overlay.Deps{
		Shell:     h.shell,
		Window:    h.window,
		Mics:      h.mics,
		Source:    h.source,
		Renderer:  h.renderer,
		Awake:     h.awake,
		Scheduler: h.sched,
		Now:       h.sched.Now,
	}, h.poster, zaptest.NewLogger(h.t))
	if err != nil {
		h.t.Fatalf("NewController: %v", err)
	}
	h.c = c
	for _, ev := range c.InitialEvents() {
		if c.Dispatch(ev) != overlay.Continue {
			h.t.Fatalf("initial event %s quit", ev.Kind())
		}
	}
}

// pump dispatches everything posted so far, including events posted while
// dispatching.
func (h *harness) pump() {
	for {
		events := h.poster.drain()
		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			h.c.Dispatch(ev)
		}
	}
}

// advance moves the fake clock one step at a time so recurring timers re-arm
// between fires.
func (h *harness) advance(d, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		h.sched.Advance(step)
		h.pump()
	}
}

// waitFor blocks until n events of kind have been posted from another
// goroutine.
func (h *harness) waitFor(kind overlay.Kind, n int) {
	h.t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.poster.count(kind) < n {
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %d %s events, got %d", n, kind, h.poster.count(kind))
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) lastFrame() frame.Frame {
	h.t.Helper()
	frames := h.renderer.Frames()
	if len(frames) == 0 {
		h.t.Fatalf("no frames rendered")
	}
	return frames[len(frames)-1]
}

func TestController_InitialRender(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Overlay.DebugPaint = true
	})
	h.mics.Add("mic-1", true)
	h.start()

	if got := h.renderer.Reasons(); len(got) != 1 || got[0] != frame.ReasonInitial {
		t.Fatalf("reasons = %v; want [initial]", got)
	}
	f := h.lastFrame()
	want := placement.Rect{Left: 960 - 39, Top: 1032, Right: 1600, Bottom: 1080}
	if f.Rect != want {
		t.Fatalf("rect = %+v; want %+v", f.Rect, want)
	}
	if !f.MicMuted || f.ShowMicWarning() {
		t.Fatalf("muted mic shows warning")
	}
	if !f.Debug || f.ScalePercent != 100 || f.Seq != 1 {
		t.Fatalf("frame = %+v", f)
	}
	if h.window.Touches() != 1 || !h.window.Topmost() {
		t.Fatalf("touches=%d topmost=%v", h.window.Touches(), h.window.Topmost())
	}
	if h.c.Fetches() != 1 {
		t.Fatalf("fetches = %d; want 1", h.c.Fetches())
	}
	if h.sched.Pending() != 1 {
		t.Fatalf("pending timers = %d; want only the fetch timer", h.sched.Pending())
	}
}

func TestController_OffsetFromRight(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Overlay.OffsetFromRight = 100
	})
	h.start()

	f := h.lastFrame()
	if f.Rect.Right != 1820 || f.OffsetFromRight != 100 {
		t.Fatalf("frame = %+v; want right edge 1820", f)
	}

	h.c.Dispatch(overlay.SetOffsetFromRight{Px: 0})
	if f := h.lastFrame(); f.Reason != frame.ReasonOffset || f.Rect.Right != 1600 {
		t.Fatalf("frame = %+v; want offset frame anchored to the tray", f)
	}

	before := len(h.renderer.Frames())
	h.c.Dispatch(overlay.SetOffsetFromRight{Px: 0})
	if len(h.renderer.Frames()) != before {
		t.Fatalf("unchanged offset rendered a frame")
	}
}

func TestController_NegativeOffsetClamped(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Overlay.OffsetFromRight = 100
	})
	h.start()

	h.c.Dispatch(overlay.SetOffsetFromRight{Px: -50})
	f := h.lastFrame()
	if f.Reason != frame.ReasonOffset || f.Rect.Right != 1600 {
		t.Fatalf("frame = %+v; want offset frame anchored to the tray", f)
	}
	if f.OffsetFromRight != 0 {
		t.Fatalf("OffsetFromRight = %d; want clamped to 0", f.OffsetFromRight)
	}
}

func TestController_RedrawEveryNthFetch(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.advance(9*time.Second, time.Second)

	if h.c.Fetches() != 10 {
		t.Fatalf("fetches = %d; want 10", h.c.Fetches())
	}
	if got := h.renderer.Count(frame.ReasonTick); got != 2 {
		t.Fatalf("tick renders = %d; want 2", got)
	}
	if cpu := h.lastFrame().Metrics.CPUPercent; cpu <= 0 {
		t.Fatalf("cpu = %v; want a positive average", cpu)
	}
}

func TestController_LockPausesUpdates(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Overlay.KeepAwakeWhileUnlocked = true
	})
	h.start()

	// A fetch already queued when the session locks must not run.
	h.sched.Advance(time.Second)
	if h.poster.count(overlay.KindTimerFired) != 1 {
		t.Fatalf("fetch timer did not fire")
	}
	h.c.Dispatch(overlay.SessionChange{State: overlay.SessionLock})
	h.pump()

	if !h.c.Paused() {
		t.Fatalf("controller not paused after lock")
	}
	if h.c.Fetches() != 1 {
		t.Fatalf("stale fetch ran: fetches = %d", h.c.Fetches())
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("pending timers = %d after lock", h.sched.Pending())
	}

	h.advance(5*time.Second, time.Second)
	h.c.Dispatch(overlay.Redraw{})
	if h.c.Fetches() != 1 || len(h.renderer.Frames()) != 1 {
		t.Fatalf("fetches=%d frames=%d while locked", h.c.Fetches(), len(h.renderer.Frames()))
	}

	h.c.Dispatch(overlay.SessionChange{State: overlay.SessionUnlock})
	if f := h.lastFrame(); f.Reason != frame.ReasonResume {
		t.Fatalf("reason = %s; want resume", f.Reason)
	}
	h.advance(time.Second, time.Second)
	if h.c.Fetches() != 2 {
		t.Fatalf("fetches = %d after unlock; want 2", h.c.Fetches())
	}

	want := []bool{true, false, true}
	if len(h.awake.calls) != len(want) {
		t.Fatalf("keep awake calls = %v; want %v", h.awake.calls, want)
	}
	for i := range want {
		if h.awake.calls[i] != want[i] {
			t.Fatalf("keep awake calls = %v; want %v", h.awake.calls, want)
		}
	}
}

func TestController_MicNotificationsCoalesce(t *testing.T) {
	h := newHarness(t, nil)
	first := h.mics.Add("mic-1", true)
	second := h.mics.Add("mic-2", true)
	h.start()

	_ = first.SetMuted(false)
	_ = second.SetMuted(false)
	h.waitFor(overlay.KindQueueMicCheck, 2)
	h.pump()

	if h.sched.Pending() != 2 {
		t.Fatalf("pending = %d; want fetch and one mic check", h.sched.Pending())
	}
	h.advance(10*time.Millisecond, 10*time.Millisecond)

	if got := h.renderer.Count(frame.ReasonMic); got != 1 {
		t.Fatalf("mic renders = %d; want 1", got)
	}
	if f := h.lastFrame(); f.MicMuted || !f.ShowMicWarning() {
		t.Fatalf("unmuted mic not reported: %+v", f)
	}
	if h.c.MicMuted() {
		t.Fatalf("controller still reports muted")
	}
}

func TestController_MicNotificationsWithoutChange(t *testing.T) {
	tests := []struct {
		name      string
		muted     [2]bool
		set       [2]bool
		wantMuted bool
	}{
		{name: "stays muted", muted: [2]bool{true, true}, set: [2]bool{true, true}, wantMuted: true},
		{name: "stays unmuted", muted: [2]bool{false, true}, set: [2]bool{false, false}, wantMuted: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			first := h.mics.Add("mic-1", tt.muted[0])
			second := h.mics.Add("mic-2", tt.muted[1])
			h.start()
			before := h.renderer.Count(frame.ReasonMic)

			_ = first.SetMuted(tt.set[0])
			_ = second.SetMuted(tt.set[1])
			h.waitFor(overlay.KindQueueMicCheck, 2)
			h.pump()

			if h.sched.Pending() != 2 {
				t.Fatalf("pending = %d; want fetch and one mic check", h.sched.Pending())
			}
			h.advance(10*time.Millisecond, 10*time.Millisecond)

			if got := h.renderer.Count(frame.ReasonMic) - before; got != 0 {
				t.Fatalf("mic renders = %d; want 0", got)
			}
			if h.c.MicMuted() != tt.wantMuted {
				t.Fatalf("muted = %v; want %v", h.c.MicMuted(), tt.wantMuted)
			}
		})
	}
}

func TestController_MicHotkey(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		wantMuted  bool
		wantRender int
	}{
		{name: "enabled toggles", enabled: true, wantMuted: true, wantRender: 1},
		{name: "disabled ignored", enabled: false, wantMuted: false, wantRender: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(cfg *config.Config) {
				cfg.Overlay.MicHotkey = tt.enabled
			})
			ep := h.mics.Add("mic-1", false)
			h.start()

			h.c.Dispatch(overlay.Hotkey{ID: overlay.HotkeyMicMute})

			if got := h.renderer.Count(frame.ReasonHotkey); got != tt.wantRender {
				t.Fatalf("hotkey renders = %d; want %d", got, tt.wantRender)
			}
			if h.c.MicMuted() != tt.wantMuted {
				t.Fatalf("muted = %v; want %v", h.c.MicMuted(), tt.wantMuted)
			}
			if muted, _ := ep.Muted(); muted != tt.wantMuted {
				t.Fatalf("endpoint muted = %v; want %v", muted, tt.wantMuted)
			}
		})
	}
}

func TestController_HotkeyPicksUpNewDevices(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	late := h.mics.Add("late-mic", false)
	h.c.Dispatch(overlay.Hotkey{ID: overlay.HotkeyMicMute})

	// With no devices at startup the mic counted as muted; the toggle unmutes.
	if muted, _ := late.Muted(); muted {
		t.Fatalf("late device still muted")
	}
	if late.Subscribers() != 1 {
		t.Fatalf("late device subscribers = %d; want 1", late.Subscribers())
	}
}

func TestController_ShellHookRouting(t *testing.T) {
	tests := []struct {
		name       string
		hook       overlay.ShellHook
		immediate  bool
		wantQueued bool
	}{
		{name: "taskbar focus", hook: overlay.ShellHook{Code: overlay.ShellRudeAppActivated}, immediate: true},
		{name: "window activated", hook: overlay.ShellHook{Code: overlay.ShellWindowActivated, Param: 42}, wantQueued: true},
		{name: "rude app activated", hook: overlay.ShellHook{Code: overlay.ShellRudeAppActivated, Param: 42}, wantQueued: true},
		{name: "fullscreen enter", hook: overlay.ShellHook{Code: overlay.ShellFullscreenEnter, Param: 42}, wantQueued: true},
		{name: "fullscreen exit", hook: overlay.ShellHook{Code: overlay.ShellFullscreenExit, Param: 42}, wantQueued: true},
		{name: "unrelated", hook: overlay.ShellHook{Code: 0x1, Param: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.start()
			h.shell.SetTaskbarTopmost(false)

			h.c.Dispatch(tt.hook)
			if got := !h.window.Topmost(); got != tt.immediate {
				t.Fatalf("restacked immediately = %v; want %v", got, tt.immediate)
			}
			wantPending := 1
			if tt.wantQueued {
				wantPending = 2
			}
			if h.sched.Pending() != wantPending {
				t.Fatalf("pending = %d; want %d", h.sched.Pending(), wantPending)
			}

			h.advance(50*time.Millisecond, 10*time.Millisecond)
			wantTopmost := !(tt.immediate || tt.wantQueued)
			if h.window.Topmost() != wantTopmost {
				t.Fatalf("topmost = %v; want %v", h.window.Topmost(), wantTopmost)
			}
		})
	}
}

func TestController_ZOrderDebounce(t *testing.T) {
	h := newHarness(t, nil)
	h.start()
	calls := h.window.StackingCalls()

	h.shell.SetTaskbarTopmost(false)
	for i := 0; i < 5; i++ {
		h.c.Dispatch(overlay.ShellHook{Code: overlay.ShellWindowActivated, Param: 1})
		h.advance(20*time.Millisecond, 10*time.Millisecond)
	}
	if h.window.StackingCalls() != calls {
		t.Fatalf("restacked during a burst")
	}

	h.advance(50*time.Millisecond, 10*time.Millisecond)
	if h.window.StackingCalls() != calls+1 || h.window.Topmost() {
		t.Fatalf("stacking calls = %d topmost = %v after burst", h.window.StackingCalls(), h.window.Topmost())
	}
}

func TestController_TrayResize(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.shell.SetTrayWidth(400)
	h.waitFor(overlay.KindQueueTrayCheck, 1)
	h.pump()
	h.advance(10*time.Millisecond, 10*time.Millisecond)

	f := h.lastFrame()
	if f.Reason != frame.ReasonPosition || f.Rect.Right != 1520 {
		t.Fatalf("frame = %+v; want position frame with right edge 1520", f)
	}
	if h.c.Rect().Right != 1520 {
		t.Fatalf("controller rect = %+v", h.c.Rect())
	}
}

func TestController_ShellRestart(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.shell.Restart()
	h.shell.SetTrayWidth(400)
	h.c.Dispatch(overlay.DisplayChanged{})

	f := h.lastFrame()
	if f.Reason != frame.ReasonDisplay || f.Rect.Right != 1520 {
		t.Fatalf("frame = %+v; want display frame after shell restart", f)
	}
	if h.shell.Watchers() != 1 {
		t.Fatalf("watchers = %d; want the re-registered one", h.shell.Watchers())
	}
}

func TestController_DPIChanged(t *testing.T) {
	h := newHarness(t, nil)
	h.start()

	h.c.Dispatch(overlay.DPIChanged{DPI: 144})

	f := h.lastFrame()
	if f.Reason != frame.ReasonDPI || f.ScalePercent != 150 || f.Rect.Left != 960-58 {
		t.Fatalf("frame = %+v; want 150%% dpi frame", f)
	}
}

func TestController_Destroy(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Overlay.KeepAwakeWhileUnlocked = true
	})
	ep := h.mics.Add("mic-1", true)
	h.start()
	h.c.Dispatch(overlay.QueueTrayCheck{})

	if out := h.c.Dispatch(overlay.Destroy{}); out != overlay.Quit {
		t.Fatalf("Destroy outcome = %v; want Quit", out)
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("pending timers = %d after destroy", h.sched.Pending())
	}
	if ep.Subscribers() != 0 || h.shell.Watchers() != 0 {
		t.Fatalf("subscribers=%d watchers=%d after destroy", ep.Subscribers(), h.shell.Watchers())
	}
	if last := h.awake.calls[len(h.awake.calls)-1]; last {
		t.Fatalf("keep awake still held after destroy")
	}

	frames := len(h.renderer.Frames())
	if out := h.c.Dispatch(overlay.Redraw{}); out != overlay.Quit || len(h.renderer.Frames()) != frames {
		t.Fatalf("event handled after destroy")
	}
}
