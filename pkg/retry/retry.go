package retry

import (
	"context"
	"time"
)

// Policy bounds a retried operation.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the sleep before the first retry; each subsequent retry
	// doubles it (base * 2^attempt).
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration
}

// SleepFunc suspends for d or returns early with the context error.
// Injectable so tests can simulate elapsed time without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Do call.
type Option func(*runner)

// WithSleep replaces the real sleep used between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(r *runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithRetryable restricts which failures consume retry budget. Errors the
// classifier rejects propagate immediately.
func WithRetryable(fn func(error) bool) Option {
	return func(r *runner) {
		if fn != nil {
			r.retryable = fn
		}
	}
}

type runner struct {
	sleep     SleepFunc
	retryable func(error) bool
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do invokes fn until it succeeds or the policy is exhausted. The final
// attempt's error is propagated unchanged. Non-retryable errors (per the
// WithRetryable classifier, default: everything is retryable) short-circuit
// without sleeping.
func Do[T any](ctx context.Context, policy Policy, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	r := &runner{
		sleep:     defaultSleep,
		retryable: func(error) bool { return true },
	}
	for _, opt := range opts {
		opt(r)
	}

	attempts := max(policy.MaxAttempts, 1)

	var (
		value T
		err   error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		value, err = fn(ctx)
		if err == nil {
			return value, nil
		}

		if attempt == attempts-1 || !r.retryable(err) {
			break
		}

		if sleepErr := r.sleep(ctx, backoff(policy, attempt)); sleepErr != nil {
			var zero T
			return zero, sleepErr
		}
	}

	var zero T
	return zero, err
}

// backoff returns base * 2^attempt clamped to the policy cap.
func backoff(policy Policy, attempt int) time.Duration {
	d := policy.BaseDelay << attempt
	if policy.MaxDelay > 0 && (d > policy.MaxDelay || d < 0) {
		d = policy.MaxDelay
	}
	return d
}
