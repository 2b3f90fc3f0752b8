package generate

import (
	"context"
	"time"
)

// retryWithBackoff retries fn with exponential backoff until it succeeds,
// attempts run out, or ctx is done. No retry happens after cancellation.
func retryWithBackoff[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := time.Duration(InitialBackoffMs) * time.Millisecond
	maxBackoff := time.Duration(MaxBackoffMs) * time.Millisecond

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * BackoffMultiplier)
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}
	}

	return zero, lastErr
}
