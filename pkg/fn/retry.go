// Package fn provides small generic combinators used across the engine:
// bounded retry with exponential backoff and composable pipeline stages.
package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures retry behavior.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// DefaultRetry is the retry regime applied to all outbound provider calls.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: time.Second,
	MaxWait:     10 * time.Second,
	Jitter:      true,
}

// Retry calls f up to MaxAttempts times, doubling the wait between
// attempts up to MaxWait. The last error is returned once attempts are
// exhausted. Context cancellation aborts the wait, not an in-flight call.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) (T, error)) (T, error) {
	var (
		val T
		err error
	)
	wait := opts.InitialWait

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		val, err = f(ctx)
		if err == nil {
			return val, nil
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}

		sleep := wait
		if opts.Jitter {
			sleep = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if sleep > opts.MaxWait {
			sleep = opts.MaxWait
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(sleep):
		}

		wait *= 2
		if wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
	var zero T
	return zero, err
}
