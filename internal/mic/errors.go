package mic

import "errors"

var (
	ErrEnumerateFailed = errors.New("failed to enumerate capture endpoints")
	ErrSubscribeFailed = errors.New("failed to subscribe to endpoint")
	ErrMuteQuery       = errors.New("failed to read mute state")
	ErrMuteUpdate      = errors.New("failed to set mute state")
	ErrEndpointGone    = errors.New("endpoint no longer active")
)
