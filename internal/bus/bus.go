package bus

import (
	"strings"
	"sync"
	"time"
)

// Bus is an in-process publish/subscribe event bus with namespace
// filtering. It carries live UI state, not a durable log: when a
// subscriber's buffer is full the oldest buffered event is evicted so
// the newest state wins, and delivery to everyone else is never stalled.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	namespace string
	ch        chan Event
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish delivers evt to every subscriber whose namespace is a prefix
// of evt.Kind, stamping the timestamp if the publisher left it zero. It
// never blocks: a subscriber that cannot keep up loses its oldest
// buffered event, not the one being published.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			sub.offer(evt)
		}
	}
}

// offer enqueues evt, evicting the oldest buffered event when the
// buffer is full. Eviction is best-effort: if the subscriber drains the
// channel concurrently the event may still be lost rather than block.
func (s *subscription) offer(evt Event) {
	select {
	case s.ch <- evt:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- evt:
	default:
	}
}

// Subscribe returns a channel receiving future events whose Kind has
// the given namespace prefix (use "" for everything). Past events are
// not replayed. bufSize controls the channel buffer. The returned
// function removes the subscription.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
