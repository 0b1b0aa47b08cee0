package mic

import "sync"

// MemoryDevices is an in-process capture device registry. Mute changes
// notify subscribers from a separate goroutine, as an audio service would.
type MemoryDevices struct {
	mu        sync.Mutex
	endpoints map[string]*MemoryEndpoint
	order     []string
}

func NewMemoryDevices() *MemoryDevices {
	return &MemoryDevices{endpoints: make(map[string]*MemoryEndpoint)}
}

// Add activates a device, replacing any device with the same id.
func (d *MemoryDevices) Add(id string, muted bool) *MemoryEndpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	ep := &MemoryEndpoint{id: id, muted: muted, subs: make(map[int]func())}
	if _, ok := d.endpoints[id]; !ok {
		d.order = append(d.order, id)
	}
	d.endpoints[id] = ep
	return ep
}

// Remove deactivates a device. Its endpoint keeps working for holders but
// reports ErrEndpointGone on writes.
func (d *MemoryDevices) Remove(id string) {
	d.mu.Lock()
	ep, ok := d.endpoints[id]
	if ok {
		delete(d.endpoints, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
	d.mu.Unlock()
	if ok {
		ep.deactivate()
	}
}

func (d *MemoryDevices) ActiveCaptureEndpoints() ([]Endpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Endpoint, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.endpoints[id])
	}
	return out, nil
}

// MemoryEndpoint is a capture device held by MemoryDevices.
type MemoryEndpoint struct {
	id string

	mu      sync.Mutex
	muted   bool
	gone    bool
	subs    map[int]func()
	nextSub int
}

func (e *MemoryEndpoint) ID() string { return e.id }

func (e *MemoryEndpoint) Muted() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted, nil
}

// SetMuted changes the mute state and notifies every subscriber, even when
// the state did not change.
func (e *MemoryEndpoint) SetMuted(muted bool) error {
	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return ErrEndpointGone
	}
	e.muted = muted
	subs := make([]func(), 0, len(e.subs))
	for _, notify := range e.subs {
		subs = append(subs, notify)
	}
	e.mu.Unlock()

	go func() {
		for _, notify := range subs {
			notify()
		}
	}()
	return nil
}

func (e *MemoryEndpoint) Subscribe(notify func()) (Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return nil, ErrEndpointGone
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = notify
	return &memorySubscription{endpoint: e, id: id}, nil
}

// Subscribers returns the number of open subscriptions.
func (e *MemoryEndpoint) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *MemoryEndpoint) deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gone = true
}

type memorySubscription struct {
	endpoint *MemoryEndpoint
	id       int
	once     sync.Once
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.endpoint.mu.Lock()
		delete(s.endpoint.subs, s.id)
		s.endpoint.mu.Unlock()
	})
	return nil
}
