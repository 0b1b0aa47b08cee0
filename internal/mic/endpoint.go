package mic

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Endpoint is one active audio capture device.
type Endpoint interface {
	ID() string
	Muted() (bool, error)
	SetMuted(muted bool) error
	// Subscribe registers notify to run, on an arbitrary goroutine, whenever
	// the endpoint's volume or mute state changes.
	Subscribe(notify func()) (Subscription, error)
}

type Subscription interface {
	Close() error
}

// Enumerator lists the capture endpoints that are currently active.
type Enumerator interface {
	ActiveCaptureEndpoints() ([]Endpoint, error)
}

type registration struct {
	endpoint Endpoint
	sub      Subscription
}

// EndpointSet holds every active capture endpoint together with its change
// subscription. Every member is subscribed; membership only changes in
// Refresh and Close.
type EndpointSet struct {
	enum   Enumerator
	notify func()
	logger *zap.Logger

	byID  map[string]registration
	order []string
}

func NewEndpointSet(enum Enumerator, notify func(), logger *zap.Logger) *EndpointSet {
	return &EndpointSet{
		enum:   enum,
		notify: notify,
		logger: logger,
		byID:   make(map[string]registration),
	}
}

// Refresh subscribes to endpoints that appeared and unsubscribes from those
// that are gone. An endpoint that cannot be subscribed is left out and its
// error returned alongside any others.
func (s *EndpointSet) Refresh() error {
	active, err := s.enum.ActiveCaptureEndpoints()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEnumerateFailed, err)
	}

	var errs []error
	present := make(map[string]bool, len(active))
	for _, ep := range active {
		id := ep.ID()
		present[id] = true
		if _, ok := s.byID[id]; ok {
			continue
		}
		sub, err := ep.Subscribe(s.notify)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: mic %s: %w", ErrSubscribeFailed, id, err))
			delete(present, id)
			continue
		}
		s.byID[id] = registration{endpoint: ep, sub: sub}
		s.order = append(s.order, id)
		s.logger.Debug("Registered listener for mic", zap.String("mic", id))
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if present[id] {
			kept = append(kept, id)
			continue
		}
		if err := s.byID[id].sub.Close(); err != nil {
			s.logger.Warn("Unregistering listener failed", zap.String("mic", id), zap.Error(err))
		}
		delete(s.byID, id)
		s.logger.Debug("Unregistered listener for removed mic", zap.String("mic", id))
	}
	s.order = kept

	return errors.Join(errs...)
}

// Endpoints returns the registered endpoints in registration order.
func (s *EndpointSet) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].endpoint)
	}
	return out
}

func (s *EndpointSet) Len() int { return len(s.order) }

// Close unsubscribes from every endpoint and empties the set.
func (s *EndpointSet) Close() error {
	var errs []error
	for _, id := range s.order {
		if err := s.byID[id].sub.Close(); err != nil {
			s.logger.Warn("Unregistering listener failed", zap.String("mic", id), zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.byID = make(map[string]registration)
	s.order = nil
	return errors.Join(errs...)
}
