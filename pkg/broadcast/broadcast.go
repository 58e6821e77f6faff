package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans values out to any number of subscribers without blocking
// the publisher. Slow subscribers lose messages rather than stalling
// publishes. All methods are safe for concurrent use.
type Broadcaster[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a Broadcaster whose subscriber channels buffer up to buffer
// values. A minimum of 1 is enforced so publishes never block.
func New[T any](buffer int) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:   make(map[chan T]struct{}),
		buffer: max(buffer, 1),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a new subscriber channel. The subscription is removed
// and the channel closed when ctx is cancelled or the broadcaster closes.
// Subscribing to a closed broadcaster returns an already-closed channel.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}

	if ctx.Done() != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			select {
			case <-ctx.Done():
				b.unsubscribe(ch)
			case <-b.done:
			}
		}()
	}

	return ch
}

// Publish delivers v to every subscriber whose buffer has room; the rest
// skip this value. Publishing to a closed broadcaster is a no-op.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Close closes all subscriber channels and rejects further publishes.
// Safe to call more than once.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Broadcaster[T]) unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
