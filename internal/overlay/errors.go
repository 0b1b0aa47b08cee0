package overlay

import "errors"

var (
	ErrCreateFailed    = errors.New("failed to create overlay window")
	ErrWindowDestroyed = errors.New("overlay window has been destroyed")
)
