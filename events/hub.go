package events

import "sync"

// DefaultBuffer is the per-subscriber channel capacity used by NewHub.
const DefaultBuffer = 64

// Hub broadcasts values of type T to all current subscribers.
// The zero value is not usable; construct with NewHub.
type Hub[T any] struct {
	mu      sync.Mutex
	buffer  int
	nextID  int
	subs    map[int]chan T
	closed  bool
}

// NewHub creates a hub with the given per-subscriber buffer capacity.
// A capacity below 1 falls back to DefaultBuffer.
func NewHub[T any](buffer int) *Hub[T] {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Hub[T]{
		buffer: buffer,
		subs:   make(map[int]chan T),
	}
}

// Subscribe registers a new subscriber and returns its channel along with an
// unsubscribe function. The unsubscribe function is idempotent and closes the
// channel. Subscribing to a closed hub returns an already-closed channel.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers the event to every subscriber without blocking. When a
// subscriber's buffer is full, the oldest buffered event is dropped so the
// newest is always retained.
func (h *Hub[T]) Publish(event T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event to make room. The subscriber is
			// the only reader, but it may consume concurrently, so both the
			// drain and the retry must stay non-blocking.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Forward republishes every event from src onto this hub. It returns when
// src is closed or drained after unsubscribe.
func (h *Hub[T]) Forward(src <-chan T) {
	for event := range src {
		h.Publish(event)
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub[T]) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes all subscriber channels and rejects further publishes.
// Close is idempotent.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
