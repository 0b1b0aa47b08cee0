package placement

import "errors"

var (
	ErrInvalidHandle  = errors.New("window handle is no longer valid")
	ErrNotFound       = errors.New("element not found")
	ErrRefreshFailed  = errors.New("failed to re-resolve taskbar")
	ErrEmptyRect      = errors.New("computed rectangle is empty")
	ErrStackingQuery  = errors.New("failed to read taskbar stacking order")
	ErrStackingUpdate = errors.New("failed to update window stacking order")
	ErrTouchFailed    = errors.New("failed to touch window")
	ErrTaskbarRect    = errors.New("failed to read taskbar position")
	ErrTrayPosition   = errors.New("failed to read tray position")
)
