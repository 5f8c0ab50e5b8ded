package retry

import (
	"context"
	"math/rand"
	"time"
)

// Execute runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempt budget is spent. It returns the number of tries made.
func Execute(ctx context.Context, policy Policy, fn func(context.Context) error) (int, error) {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		if err := fn(ctx); err != nil {
			lastErr = err
			if i == attempts || !IsRetryable(err) {
				return i, lastErr
			}
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(backoffFor(policy, i)):
			}
			continue
		}
		return i, nil
	}
	return attempts, lastErr
}

func backoffFor(policy Policy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	switch policy.Backoff {
	case BackoffExponential:
		return base * time.Duration(1<<uint(attempt-1))
	case BackoffExponentialJitter:
		exp := base * time.Duration(1<<uint(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(base)))
		return exp + jitter
	default:
		return base * time.Duration(attempt)
	}
}
