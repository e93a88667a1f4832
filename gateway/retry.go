package gateway

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Retry bounds retries of idempotent gateway reads. Submissions are never
// retried.
type Retry struct {
	// Attempts is the total number of tries; values below 1 mean 1.
	Attempts int
	// Base is the delay before the second attempt; it doubles each time.
	Base time.Duration
	// Max caps a single delay.
	Max time.Duration
}

// DefaultRetry tries three times with 500ms, then 1s backoff (plus jitter).
var DefaultRetry = Retry{Attempts: 3, Base: 500 * time.Millisecond, Max: 4 * time.Second}

// delay returns the jittered backoff before attempt (1-based retries).
// Jitter is up to half the base delay.
func (r Retry) delay(attempt int) time.Duration {
	d := r.Base << (attempt - 1)
	if r.Max > 0 && d > r.Max {
		d = r.Max
	}
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/2+1)
}

func (r Retry) do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(r.delay(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
		logger.Warn("transient gateway failure, retrying",
			"op", op,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return lastErr
}
