package async

import (
	"context"
	"time"
)

// Future holds the eventual result of an operation started with Go.
type Future[T any] struct {
	value T
	err   error
	done  chan struct{}
}

// Go runs fn in its own goroutine and returns a Future for its result.
// If ctx is already cancelled the function is never invoked and the
// future completes with the context error.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.value, f.err = fn(ctx)
	}()

	return f
}

// Await blocks until the future completes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitWithTimeout races the future against a timer. If the timer fires
// first it returns ErrTimeout; the underlying operation keeps running and
// its eventual result is discarded, not cancelled.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// Done reports whether the future has completed without blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
