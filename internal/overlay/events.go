package overlay

import (
	"github.com/sanspareilsmyn/infoband/internal/config"
	"github.com/sanspareilsmyn/infoband/internal/timer"
)

// Kind discriminates the concrete Event types.
type Kind int

const (
	KindInitialMetrics Kind = iota
	KindInitialZOrder
	KindInitialMicState
	KindInitialRender
	KindEnableDebugPaint
	KindEnableKeepAwake
	KindSetOffsetFromRight
	KindTimerFired
	KindRedraw
	KindShellHook
	KindQueueTrayCheck
	KindQueueMicCheck
	KindDPIChanged
	KindDisplayChanged
	KindSessionChange
	KindHotkey
	KindDestroy
)

var kindNames = map[Kind]string{
	KindInitialMetrics:     "initial_metrics",
	KindInitialZOrder:      "initial_z_order",
	KindInitialMicState:    "initial_mic_state",
	KindInitialRender:      "initial_render",
	KindEnableDebugPaint:   "enable_debug_paint",
	KindEnableKeepAwake:    "enable_keep_awake",
	KindSetOffsetFromRight: "set_offset_from_right",
	KindTimerFired:         "timer_fired",
	KindRedraw:             "redraw",
	KindShellHook:          "shell_hook",
	KindQueueTrayCheck:     "queue_tray_check",
	KindQueueMicCheck:      "queue_mic_check",
	KindDPIChanged:         "dpi_changed",
	KindDisplayChanged:     "display_changed",
	KindSessionChange:      "session_change",
	KindHotkey:             "hotkey",
	KindDestroy:            "destroy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a message processed by the overlay event loop.
type Event interface {
	Kind() Kind
}

type (
	InitialMetrics   struct{}
	InitialZOrder    struct{}
	InitialMicState  struct{}
	InitialRender    struct{}
	EnableDebugPaint struct{}
	EnableKeepAwake  struct{}
	Redraw           struct{}
	QueueTrayCheck   struct{}
	QueueMicCheck    struct{}
	DisplayChanged   struct{}
	Destroy          struct{}
)

// SetOffsetFromRight anchors the overlay Px logical pixels from the right
// edge of the taskbar.
type SetOffsetFromRight struct {
	Px int
}

// TimerFired is posted by a timer slot. Gen identifies the schedule that
// produced it.
type TimerFired struct {
	ID  timer.ID
	Gen uint64
}

// ShellHookCode is the notification code of a shell hook message.
type ShellHookCode uint32

const (
	ShellWindowActivated  ShellHookCode = 0x0004
	ShellRudeAppActivated ShellHookCode = 0x8004
	ShellFullscreenEnter  ShellHookCode = 0x0035
	ShellFullscreenExit   ShellHookCode = 0x0036
)

// ShellHook is a window-activation notification from the desktop shell.
type ShellHook struct {
	Code  ShellHookCode
	Param uintptr
}

// DPIChanged reports the new DPI of the overlay's monitor.
type DPIChanged struct {
	DPI uint32
}

// SessionState is the kind of a session change notification.
type SessionState int

const (
	SessionLogon SessionState = iota + 1
	SessionLogoff
	SessionLock
	SessionUnlock
)

func (s SessionState) String() string {
	switch s {
	case SessionLogon:
		return "logon"
	case SessionLogoff:
		return "logoff"
	case SessionLock:
		return "lock"
	case SessionUnlock:
		return "unlock"
	default:
		return "unknown"
	}
}

type SessionChange struct {
	State SessionState
}

// HotkeyID identifies a registered global hotkey.
type HotkeyID int

const HotkeyMicMute HotkeyID = 1

type Hotkey struct {
	ID HotkeyID
}

func (InitialMetrics) Kind() Kind     { return KindInitialMetrics }
func (InitialZOrder) Kind() Kind      { return KindInitialZOrder }
func (InitialMicState) Kind() Kind    { return KindInitialMicState }
func (InitialRender) Kind() Kind      { return KindInitialRender }
func (EnableDebugPaint) Kind() Kind   { return KindEnableDebugPaint }
func (EnableKeepAwake) Kind() Kind    { return KindEnableKeepAwake }
func (SetOffsetFromRight) Kind() Kind { return KindSetOffsetFromRight }
func (TimerFired) Kind() Kind         { return KindTimerFired }
func (Redraw) Kind() Kind             { return KindRedraw }
func (ShellHook) Kind() Kind          { return KindShellHook }
func (QueueTrayCheck) Kind() Kind     { return KindQueueTrayCheck }
func (QueueMicCheck) Kind() Kind      { return KindQueueMicCheck }
func (DPIChanged) Kind() Kind         { return KindDPIChanged }
func (DisplayChanged) Kind() Kind     { return KindDisplayChanged }
func (SessionChange) Kind() Kind      { return KindSessionChange }
func (Hotkey) Kind() Kind             { return KindHotkey }
func (Destroy) Kind() Kind            { return KindDestroy }

// InitialEvents returns the events posted when the window is created, in
// order: configuration toggles first, then the first fetch, stacking, mic
// and render passes.
func InitialEvents(cfg config.OverlayConfig) []Event {
	var events []Event
	if cfg.KeepAwakeWhileUnlocked {
		events = append(events, EnableKeepAwake{})
	}
	if cfg.DebugPaint {
		events = append(events, EnableDebugPaint{})
	}
	if cfg.OffsetFromRight > 0 {
		events = append(events, SetOffsetFromRight{Px: cfg.OffsetFromRight})
	}
	return append(events,
		InitialMetrics{},
		InitialZOrder{},
		InitialMicState{},
		InitialRender{},
	)
}
