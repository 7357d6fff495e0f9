package events

import "sync"

// Subscriber receives every Event published to a Bus. Implementations must
// not mutate Event.Payload — consumers treat event payloads as immutable
// snapshots.
type Subscriber func(Event)

// Bus is a single-producer, multi-consumer fan-out: one publisher per
// event, but any number of subscribers may observe it. The conversation
// state machine is the sole publisher; hosts subscribe to observe it.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive every future Publish call. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
	idx := len(b.subscribers) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.subscribers) {
			b.subscribers[idx] = nil
		}
	}
}

// Publish fans ev out to every live subscriber, in subscription order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub != nil {
			sub(ev)
		}
	}
}
