// Package eventbus is an in-memory publish/subscribe bus. The orchestrator
// publishes task-completion events on it and the history recorder consumes
// them, so persisting the conversation log never blocks a task run.
//
// Design:
//   - Buffered Go channel per subscriber (buffer=100).
//   - Publish is non-blocking: drops the event silently if a buffer is full.
//   - Subscribe returns a read-only channel; the caller owns the consumption
//     loop and hands the channel back to Unsubscribe when done.
//   - Unsubscribe closes the channel, so range/receive loops terminate.
//   - No persistence: events are fire-and-forget.
package eventbus

import "sync"

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
	Unsubscribe(topic string, sub <-chan Event)
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[chan Event]struct{}
}

// New returns a new in-memory Bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber for topic and returns a read-only
// channel. The caller must consume it to avoid dropped events.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[chan Event]struct{})
	}
	b.topics[topic][ch] = struct{}{}
	return ch
}

// Unsubscribe removes sub from topic and closes it, ending the subscriber's
// receive loop. Unknown channels are ignored, so calling it twice is safe.
func (b *Bus) Unsubscribe(topic string, sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.topics[topic] {
		if (<-chan Event)(ch) == sub {
			delete(b.topics[topic], ch)
			close(ch)
			return
		}
	}
}

// Publish sends an Event to all subscribers of topic.
// If a subscriber's buffer is full the event is dropped (non-blocking).
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.topics[topic] {
		select {
		case ch <- evt:
		default:
			// buffer full, drop event
		}
	}
}
