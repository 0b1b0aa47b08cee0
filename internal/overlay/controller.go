package overlay

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/frame"
	"github.com/sanspareilsmyn/infoband/internal/mic"
	"github.com/sanspareilsmyn/infoband/internal/placement"
	"github.com/sanspareilsmyn/infoband/internal/power"
	"github.com/sanspareilsmyn/infoband/internal/render"
	"github.com/sanspareilsmyn/infoband/internal/telemetry"
	"github.com/sanspareilsmyn/infoband/internal/timer"
)

// Timer slots owned by the controller.
const (
	TimerFetch timer.ID = iota + 1
	TimerTrayPosition
	TimerZOrder
	TimerMicState
)

// Poster enqueues an event for the event loop. It is safe to call from any
// goroutine.
type Poster interface {
	Post(ev Event) error
}

// Outcome tells the event loop whether to keep running.
type Outcome int

const (
	Continue Outcome = iota
	Quit
)

// Deps are the controller's external collaborators.
type Deps struct {
	Shell     placement.Shell
	Window    placement.Window
	Mics      mic.Enumerator
	Source    telemetry.Source
	Renderer  render.Renderer
	Awake     power.Requester
	Scheduler timer.Scheduler
	Now       func() time.Time
}

// Controller owns all per-window state. Every method must be called from
// the event loop; collaborators running elsewhere reach it only through the
// Poster.
type Controller struct {
	cfg    *config.Config
	post   Poster
	logger *zap.Logger
	now    func() time.Time

	sampler  *telemetry.Sampler
	ref      *placement.Reference
	zorder   *placement.ZOrder
	position *placement.Position
	mic      *mic.Microphone
	awake    *power.Awake
	renderer render.Renderer

	timers map[timer.ID]*timer.Timer

	paused    bool
	debug     bool
	seq       uint64
	destroyed bool
}

// NewController builds the per-window state. It fails only if the taskbar
// cannot be found.
func NewController(cfg *config.Config, deps Deps, post Poster, logger *zap.Logger) (*Controller, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		cfg:      cfg,
		post:     post,
		logger:   logger,
		now:      now,
		renderer: deps.Renderer,
		timers:   make(map[timer.ID]*timer.Timer),
	}

	ref, err := placement.NewReference(deps.Shell, c.postFunc(QueueTrayCheck{}), logger.Named("taskbar"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	c.ref = ref
	c.zorder = placement.NewZOrder(ref, deps.Window, logger.Named("zorder"))
	c.position = placement.NewPosition(ref, logger.Named("position"))
	c.sampler = telemetry.NewSampler(cfg.Sampler, deps.Source, now, logger.Named("sampler"))
	c.mic = mic.New(deps.Mics, c.postFunc(QueueMicCheck{}), logger.Named("mic"))
	c.awake = power.NewAwake(deps.Awake, logger.Named("awake"))

	fire := func(id timer.ID, gen uint64) {
		if err := post.Post(TimerFired{ID: id, Gen: gen}); err != nil {
			logger.Debug("Dropping timer fire", zap.Int("timer", int(id)), zap.Error(err))
		}
	}
	timerLogger := logger.Named("timer")
	for _, spec := range []timer.Spec{
		{ID: TimerFetch, Name: "fetch", Interval: cfg.Sampler.FetchInterval, Tolerance: cfg.Timers.FetchTolerance, Recurring: true},
		{ID: TimerTrayPosition, Name: "tray_position", Interval: cfg.Timers.TrayPositionDebounce, Tolerance: cfg.Timers.DebounceTolerance},
		{ID: TimerZOrder, Name: "z_order", Interval: cfg.Timers.ZOrderDebounce, Tolerance: cfg.Timers.DebounceTolerance},
		{ID: TimerMicState, Name: "mic_state", Interval: cfg.Timers.MicStateDebounce, Tolerance: cfg.Timers.DebounceTolerance},
	} {
		c.timers[spec.ID] = timer.New(spec, deps.Scheduler, fire, timerLogger)
	}

	logger.Info("Overlay controller created")
	return c, nil
}

func (c *Controller) postFunc(ev Event) func() {
	return func() {
		if err := c.post.Post(ev); err != nil {
			c.logger.Debug("Dropping notification", zap.Stringer("event", ev.Kind()), zap.Error(err))
		}
	}
}

// Paused reports whether updates are suspended for a locked session.
func (c *Controller) Paused() bool { return c.paused }

// Fetches returns the number of completed metric fetches.
func (c *Controller) Fetches() int { return c.sampler.Fetches() }

// MicMuted returns the last observed aggregate mute state.
func (c *Controller) MicMuted() bool { return c.mic.IsMuted() }

// Rect returns the current overlay rectangle.
func (c *Controller) Rect() placement.Rect {
	rect, _ := c.position.Get()
	return rect
}

// InitialEvents returns the events to post right after creation.
func (c *Controller) InitialEvents() []Event { return InitialEvents(c.cfg.Overlay) }

// Dispatch handles one event. After Destroy every event is ignored.
func (c *Controller) Dispatch(ev Event) Outcome {
	if c.destroyed {
		c.logger.Debug("Ignoring event after destroy", zap.Stringer("event", ev.Kind()))
		return Quit
	}
	eventsTotal.WithLabelValues(ev.Kind().String()).Inc()

	handle, ok := transitions[ev.Kind()]
	if !ok {
		c.logger.Warn("Unhandled event", zap.Stringer("event", ev.Kind()))
		return Continue
	}
	return handle(c, ev)
}

var transitions = map[Kind]func(*Controller, Event) Outcome{
	KindInitialMetrics:     (*Controller).onInitialMetrics,
	KindInitialZOrder:      (*Controller).onInitialZOrder,
	KindInitialMicState:    (*Controller).onInitialMicState,
	KindInitialRender:      (*Controller).onInitialRender,
	KindEnableDebugPaint:   (*Controller).onEnableDebugPaint,
	KindEnableKeepAwake:    (*Controller).onEnableKeepAwake,
	KindSetOffsetFromRight: (*Controller).onSetOffsetFromRight,
	KindTimerFired:         (*Controller).onTimerFired,
	KindRedraw:             (*Controller).onRedraw,
	KindShellHook:          (*Controller).onShellHook,
	KindQueueTrayCheck:     (*Controller).onQueueTrayCheck,
	KindQueueMicCheck:      (*Controller).onQueueMicCheck,
	KindDPIChanged:         (*Controller).onDPIChanged,
	KindDisplayChanged:     (*Controller).onDisplayChanged,
	KindSessionChange:      (*Controller).onSessionChange,
	KindHotkey:             (*Controller).onHotkey,
	KindDestroy:            (*Controller).onDestroy,
}

var timerTicks = map[timer.ID]func(*Controller){
	TimerFetch:        (*Controller).onFetchTick,
	TimerTrayPosition: (*Controller).onTrayTick,
	TimerZOrder:       (*Controller).onZOrderTick,
	TimerMicState:     (*Controller).onMicTick,
}

func (c *Controller) onInitialMetrics(Event) Outcome {
	c.logger.Info("Initial metrics fetch")
	c.sampler.Fetch()
	if !c.paused {
		c.timers[TimerFetch].Reschedule()
	}
	return Continue
}

func (c *Controller) onInitialZOrder(Event) Outcome {
	c.logger.Info("Initial z-order update")
	_ = c.zorder.Touch()
	_ = c.zorder.Update()
	return Continue
}

func (c *Controller) onInitialMicState(Event) Outcome {
	c.logger.Info("Initial mic state update")
	_ = c.mic.RefreshDevices()
	_ = c.mic.UpdateMutedState()
	return Continue
}

func (c *Controller) onInitialRender(Event) Outcome {
	c.logger.Info("Initial render")
	_ = c.position.UpdateTaskbarPosition()
	_ = c.position.UpdateTrayPosition()
	_, _ = c.position.Recompute()
	c.render(frame.ReasonInitial)
	return Continue
}

func (c *Controller) onEnableDebugPaint(Event) Outcome {
	c.logger.Info("Enabling debug paint")
	c.debug = true
	return Continue
}

func (c *Controller) onEnableKeepAwake(Event) Outcome {
	c.logger.Info("Enabling keep awake while unlocked")
	c.awake.Enable()
	if !c.paused {
		_ = c.awake.KeepAwake(true)
	}
	return Continue
}

func (c *Controller) onSetOffsetFromRight(ev Event) Outcome {
	px := ev.(SetOffsetFromRight).Px
	c.logger.Info("Setting offset from right", zap.Int("px", px))
	c.position.SetOffsetFromRight(px)
	if changed, _ := c.position.Recompute(); changed {
		c.render(frame.ReasonOffset)
	}
	return Continue
}

func (c *Controller) onTimerFired(ev Event) Outcome {
	fired := ev.(TimerFired)
	t, ok := c.timers[fired.ID]
	if !ok {
		c.logger.Warn("Unhandled timer", zap.Int("timer", int(fired.ID)))
		return Continue
	}
	if !t.Accept(fired.Gen) {
		return Continue
	}
	timerTicks[fired.ID](c)
	return Continue
}

func (c *Controller) onFetchTick() {
	if c.paused {
		c.logger.Debug("Skipping fetch while paused")
		return
	}
	n := c.sampler.Fetch()
	if n%c.cfg.Sampler.RedrawEveryN == 0 {
		c.render(frame.ReasonTick)
	}
}

func (c *Controller) onTrayTick() {
	c.logger.Debug("Rechecking tray position")
	if err := c.position.UpdateTrayPosition(); err != nil {
		return
	}
	if changed, _ := c.position.Recompute(); changed {
		c.render(frame.ReasonPosition)
	}
}

func (c *Controller) onZOrderTick() {
	c.logger.Debug("Rechecking z-order")
	_ = c.zorder.Update()
}

func (c *Controller) onMicTick() {
	was := c.mic.IsMuted()
	_ = c.mic.UpdateMutedState()
	now := c.mic.IsMuted()
	c.logger.Debug("Checked mic state", zap.Bool("was_muted", was), zap.Bool("now_muted", now))
	if was != now {
		c.render(frame.ReasonMic)
	}
}

func (c *Controller) onRedraw(Event) Outcome {
	c.render(frame.ReasonRedraw)
	return Continue
}

func (c *Controller) onShellHook(ev Event) Outcome {
	hook := ev.(ShellHook)
	switch {
	case hook.Code == ShellRudeAppActivated && hook.Param == 0:
		// The taskbar itself took focus; restack now rather than after the debounce.
		c.logger.Debug("Reapplying z-order due to shell focus", zap.Uint32("code", uint32(hook.Code)))
		_ = c.zorder.Update()
	case hook.Code == ShellWindowActivated,
		hook.Code == ShellRudeAppActivated,
		hook.Code == ShellFullscreenEnter,
		hook.Code == ShellFullscreenExit:
		// The shell restacks itself after posting these; checking later sees its final order.
		c.logger.Debug("Queuing z-order check",
			zap.Uint32("code", uint32(hook.Code)),
			zap.Uint64("param", uint64(hook.Param)),
		)
		c.timers[TimerZOrder].Reschedule()
	default:
		c.logger.Debug("Ignoring shell hook", zap.Uint32("code", uint32(hook.Code)))
	}
	return Continue
}

func (c *Controller) onQueueTrayCheck(Event) Outcome {
	c.logger.Debug("Queuing tray position check")
	c.timers[TimerTrayPosition].Reschedule()
	return Continue
}

func (c *Controller) onQueueMicCheck(Event) Outcome {
	c.logger.Debug("Queuing mic state check")
	c.timers[TimerMicState].Reschedule()
	return Continue
}

func (c *Controller) onDPIChanged(ev Event) Outcome {
	scale := c.position.SetDPI(ev.(DPIChanged).DPI)
	c.logger.Info("DPI changed", zap.Uint32("dpi", ev.(DPIChanged).DPI), zap.Int("scale_percent", scale.Percent()))
	_, _ = c.position.Recompute()
	c.render(frame.ReasonDPI)
	return Continue
}

func (c *Controller) onDisplayChanged(Event) Outcome {
	c.logger.Debug("Display resolution changed")
	_ = c.position.UpdateTaskbarPosition()
	_ = c.position.UpdateTrayPosition()
	_, _ = c.position.Recompute()
	c.render(frame.ReasonDisplay)
	return Continue
}

func (c *Controller) onSessionChange(ev Event) Outcome {
	state := ev.(SessionChange).State
	switch state {
	case SessionLock, SessionLogoff:
		c.logger.Info("Pausing updates", zap.Stringer("session", state))
		c.paused = true
		c.timers[TimerFetch].Kill()
		_ = c.awake.KeepAwake(false)
	case SessionUnlock, SessionLogon:
		c.logger.Info("Resuming updates", zap.Stringer("session", state))
		c.paused = false
		c.timers[TimerFetch].Reschedule()
		_ = c.awake.KeepAwake(true)
		c.render(frame.ReasonResume)
	default:
		c.logger.Debug("Ignoring session change", zap.Int("state", int(state)))
	}
	return Continue
}

func (c *Controller) onHotkey(ev Event) Outcome {
	id := ev.(Hotkey).ID
	if id != HotkeyMicMute || !c.cfg.Overlay.MicHotkey {
		c.logger.Debug("Ignoring hotkey", zap.Int("hotkey", int(id)))
		return Continue
	}

	// Pick up devices plugged in since the last check.
	_ = c.mic.RefreshDevices()

	was := c.mic.IsMuted()
	_ = c.mic.SetMute(!was)
	_ = c.mic.UpdateMutedState()
	now := c.mic.IsMuted()
	c.logger.Debug("Toggled mic mute", zap.Bool("was_muted", was), zap.Bool("now_muted", now))
	if was != now {
		c.render(frame.ReasonHotkey)
	}
	return Continue
}

func (c *Controller) onDestroy(Event) Outcome {
	c.logger.Info("Shutting down")
	for _, t := range c.timers {
		t.Kill()
	}
	var errs []error
	if err := c.mic.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.ref.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.awake.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.Warn("Teardown finished with errors", zap.Error(err))
	}
	c.destroyed = true
	return Quit
}

func (c *Controller) render(reason frame.Reason) {
	if c.paused {
		c.logger.Debug("Skipping render while paused", zap.String("reason", string(reason)))
		return
	}
	rect, scale := c.position.Get()
	c.seq++
	f := frame.Frame{
		Seq:             c.seq,
		Timestamp:       c.now(),
		Reason:          reason,
		Metrics:         c.sampler.Snapshot(),
		MicMuted:        c.mic.IsMuted(),
		Rect:            rect,
		ScalePercent:    scale.Percent(),
		OffsetFromRight: c.position.OffsetFromRight(),
		Debug:           c.debug,
	}
	rendersTotal.WithLabelValues(string(reason)).Inc()
	if err := c.renderer.Render(f); err != nil {
		c.logger.Warn("Render failed", zap.String("reason", string(reason)), zap.Error(err))
	}
}
