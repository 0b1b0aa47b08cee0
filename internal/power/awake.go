package power

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrRequestFailed = errors.New("failed to change keep-awake request")

// Requester asks the system to stay awake, or releases that request.
type Requester interface {
	SetKeepAwake(awake bool) error
}

// Awake holds the keep-awake request. It starts disabled, in which case
// every call is a no-op; Enable turns it on with no request held.
type Awake struct {
	requester Requester
	logger    *zap.Logger
	// nil while disabled
	current *bool
}

func NewAwake(requester Requester, logger *zap.Logger) *Awake {
	return &Awake{requester: requester, logger: logger}
}

func (a *Awake) Enable() {
	if a.current != nil {
		return
	}
	off := false
	a.current = &off
}

// Enabled reports whether Enable has been called.
func (a *Awake) Enabled() bool { return a.current != nil }

// Held reports whether a keep-awake request is currently held.
func (a *Awake) Held() bool { return a.current != nil && *a.current }

// KeepAwake requests or releases keep-awake. Repeating the current state
// does not reach the requester.
func (a *Awake) KeepAwake(awake bool) error {
	if a.current == nil || *a.current == awake {
		return nil
	}
	if err := a.requester.SetKeepAwake(awake); err != nil {
		a.logger.Error("Failed to set keep awake state", zap.Bool("awake", awake), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	*a.current = awake
	a.logger.Debug("Keep awake state changed", zap.Bool("awake", awake))
	return nil
}

// Close releases any held request.
func (a *Awake) Close() error {
	return a.KeepAwake(false)
}

// LogRequester records keep-awake requests in the log. It stands in on
// hosts without a power management interface.
type LogRequester struct {
	Logger *zap.Logger
}

func (r LogRequester) SetKeepAwake(awake bool) error {
	r.Logger.Info("Keep awake request", zap.Bool("awake", awake))
	return nil
}
