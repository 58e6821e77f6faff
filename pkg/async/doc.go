// Package async provides a minimal future primitive for bounding
// asynchronous work by a deadline.
//
// Go starts a function in a goroutine and hands back a Future. Await blocks
// for the result; AwaitWithTimeout bounds the wait and returns ErrTimeout if
// the deadline fires first. A timed-out future is not cancelled: the work
// finishes on its own and the result is simply ignored, which is the
// behaviour callers want when racing a network call against a failsafe
// window.
//
//	future := async.Go(ctx, func(ctx context.Context) (*Session, error) {
//	    return gateway.RefreshSession(ctx, token)
//	})
//	sess, err := future.AwaitWithTimeout(8 * time.Second)
package async
