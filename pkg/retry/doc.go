// Package retry implements bounded retries with exponential backoff as an
// explicit loop with an attempt counter and an injectable sleep function.
//
// The classifier passed via WithRetryable decides which failures are worth
// retrying; anything it rejects (invalid credentials, validation errors)
// propagates immediately without consuming retry budget. The last attempt's
// error is returned unwrapped so callers can match on sentinel errors.
//
//	sess, err := retry.Do(ctx,
//	    retry.Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond},
//	    func(ctx context.Context) (*Session, error) {
//	        return gateway.RefreshSession(ctx, token)
//	    },
//	    retry.WithRetryable(auth.IsTransient),
//	)
package retry
