package engine

import (
	"context"
	"sync"
)

// Broadcaster fans engine events out to every subscribed listener. Each
// subscriber gets its own buffered channel; a slow subscriber drops events
// instead of stalling the engine or its peers.
type Broadcaster struct {
	mu     sync.Mutex
	buffer int
	subs   map[int]chan Event
	nextID int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[int]chan Event),
	}
}

// Send publishes an event to all subscribers (non-blocking, drop on full).
func (b *Broadcaster) Send(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// drop for this subscriber; others still receive
		}
	}
}

// Listen registers a subscriber. The returned cancel function unregisters
// it and closes the channel; canceling ctx does the same.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan Event, context.CancelFunc) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	listenerCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-listenerCtx.Done()
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}()

	return ch, cancel
}

// SubscriberCount reports the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
