package mic

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Microphone tracks whether every active capture endpoint is muted.
type Microphone struct {
	set    *EndpointSet
	logger *zap.Logger
	muted  bool
}

// New creates a microphone with no endpoints. notify is registered with each
// endpoint and must only post to the event loop.
func New(enum Enumerator, notify func(), logger *zap.Logger) *Microphone {
	return &Microphone{
		set:    NewEndpointSet(enum, notify, logger),
		logger: logger,
		// Assume muted until the first check so no warning flashes at startup.
		muted: true,
	}
}

// IsMuted returns the last observed aggregate mute state.
func (m *Microphone) IsMuted() bool { return m.muted }

// Endpoints returns the number of registered endpoints.
func (m *Microphone) Endpoints() int { return m.set.Len() }

func (m *Microphone) RefreshDevices() error {
	if err := m.set.Refresh(); err != nil {
		m.logger.Error("Refreshing active microphones failed", zap.Error(err))
		return err
	}
	return nil
}

// UpdateMutedState re-reads every endpoint. With no endpoints the
// microphone counts as muted. A read failure keeps the previous state.
func (m *Microphone) UpdateMutedState() error {
	allMuted := true
	for _, ep := range m.set.Endpoints() {
		muted, err := ep.Muted()
		if err != nil {
			m.logger.Error("Updating muted state failed", zap.String("mic", ep.ID()), zap.Error(err))
			return fmt.Errorf("%w: %w", ErrMuteQuery, err)
		}
		if !muted {
			allMuted = false
			break
		}
	}
	m.muted = allMuted
	return nil
}

// SetMute applies the mute state to every endpoint. It does not update
// IsMuted; call UpdateMutedState to observe the result.
func (m *Microphone) SetMute(muted bool) error {
	var errs []error
	for _, ep := range m.set.Endpoints() {
		if err := ep.SetMuted(muted); err != nil {
			errs = append(errs, fmt.Errorf("%w: mic %s: %w", ErrMuteUpdate, ep.ID(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Error("Setting muted state failed", zap.Bool("muted", muted), zap.Error(err))
		return err
	}
	return nil
}

// Close unregisters every endpoint subscription.
func (m *Microphone) Close() error {
	return m.set.Close()
}
