// Package broadcast implements an in-process, multi-subscriber channel.
//
// Publish never blocks: every subscriber owns a bounded queue and, once that
// queue is full, the oldest queued item is dropped to make room for the new one.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// DropFunc is called, outside of any lock, each time an item is dropped for a subscriber.
type DropFunc[T any] func(sub *Subscription[T], dropped T)

type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	closed bool

	onDrop DropFunc[T]
}

type Subscription[T any] struct {
	parent  *Broadcaster[T]
	ch      chan T
	once    sync.Once
	dropped atomic.Uint64
}

func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[*Subscription[T]]struct{}),
	}
}

func (b *Broadcaster[T]) OnDrop(f DropFunc[T]) *Broadcaster[T] {
	b.onDrop = f

	return b
}

// Subscribe registers a new subscriber with a queue of the given size (minimum 1).
// Subscribing to a closed broadcaster returns an already closed subscription.
func (b *Broadcaster[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer < 1 {
		buffer = 1
	}

	sub := &Subscription[T]{
		parent: b,
		ch:     make(chan T, buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.once.Do(func() { close(sub.ch) })

		return sub
	}

	b.subs[sub] = struct{}{}

	return sub
}

// Publish delivers item to every subscriber without blocking.
func (b *Broadcaster[T]) Publish(item T) {
	type drop struct {
		sub  *Subscription[T]
		item T
	}

	var drops []drop

	b.mu.RLock()
	for sub := range b.subs {
		dropped, ok := sub.offer(item)
		if ok {
			drops = append(drops, drop{sub: sub, item: dropped})
		}
	}
	b.mu.RUnlock()

	if b.onDrop == nil {
		return
	}

	for _, d := range drops {
		b.onDrop(d.sub, d.item)
	}
}

// Len returns the current number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Close closes every subscription. Later publications are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for sub := range b.subs {
		delete(b.subs, sub)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// C is closed once the subscription is cancelled or the broadcaster closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns the number of items dropped for this subscriber.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe is idempotent.
func (s *Subscription[T]) Unsubscribe() {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()

	delete(s.parent.subs, s)
	s.once.Do(func() { close(s.ch) })
}

// offer must be called with the parent read lock held, so ch cannot be closed concurrently.
func (s *Subscription[T]) offer(item T) (T, bool) {
	var zero T

	select {
	case s.ch <- item:
		return zero, false
	default:
	}

	// Queue is full: evict the oldest item, then retry once.
	// The subscriber may drain concurrently, so both steps stay non-blocking.
	var dropped T

	evicted := false

	select {
	case dropped = <-s.ch:
		evicted = true
	default:
	}

	select {
	case s.ch <- item:
	default:
		// Another publisher refilled the slot: the new item is the one dropped.
		dropped = item
		evicted = true
	}

	if !evicted {
		return zero, false
	}

	s.dropped.Add(1)

	return dropped, true
}
