package task

import "sync"

// Channel abstracts the delivery half of a subscriber connection. The
// websocket handler provides the production implementation; tests provide
// in-memory recorders.
type Channel interface {
	// Send delivers one message. An error marks the channel dead.
	Send(v any) error
	// Open reports whether the channel can still accept messages.
	Open() bool
	// Close releases the underlying connection.
	Close() error
}

// Subscribers maps task ids to their single live subscriber channel.
// Registration is last-wins: a reconnecting client displaces the previous
// channel, which is closed.
type Subscribers struct {
	mu      sync.Mutex
	chans   map[string]Channel
	waiters map[string]chan struct{}
}

// NewSubscribers returns an empty subscriber registry.
func NewSubscribers() *Subscribers {
	return &Subscribers{
		chans:   make(map[string]Channel),
		waiters: make(map[string]chan struct{}),
	}
}

// Register installs ch as the subscriber for taskID, displacing and closing
// any previous channel, and wakes anyone blocked in Attached.
func (s *Subscribers) Register(taskID string, ch Channel) {
	s.mu.Lock()
	prev := s.chans[taskID]
	s.chans[taskID] = ch
	if w, ok := s.waiters[taskID]; ok {
		close(w)
		delete(s.waiters, taskID)
	}
	s.mu.Unlock()
	if prev != nil && prev != ch {
		_ = prev.Close()
	}
}

// Unregister removes ch if it is still the current subscriber for taskID.
// A channel displaced by a newer registration is left alone.
func (s *Subscribers) Unregister(taskID string, ch Channel) {
	s.mu.Lock()
	if s.chans[taskID] == ch {
		delete(s.chans, taskID)
	}
	s.mu.Unlock()
}

// Get returns the current subscriber channel for taskID.
func (s *Subscribers) Get(taskID string) (Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chans[taskID]
	return ch, ok
}

// Attached returns a channel that is closed once a subscriber is registered
// for taskID. If one is already registered the returned channel is closed.
func (s *Subscribers) Attached(taskID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chans[taskID]; ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	w, ok := s.waiters[taskID]
	if !ok {
		w = make(chan struct{})
		s.waiters[taskID] = w
	}
	return w
}
