package collector

import (
	"context"
	"time"

	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

const (
	// MaxRetries is the attempt cap for rate-limited and transient
	// failures before a call is surfaced as a transient error.
	MaxRetries = 3

	// RetryDelay is the initial backoff, doubled per attempt.
	RetryDelay = time.Second
)

// WithRetry runs fn up to MaxRetries times. Rate-limited failures sleep
// at least their retry-after before the next attempt; transient
// failures back off exponentially. Not-found and configuration errors
// are returned immediately. The sleep only happens between attempts,
// never after the last one.
func WithRetry(ctx context.Context, fn func() error) error {
	delay := RetryDelay
	var lastErr error

	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !apperrors.IsRateLimited(lastErr) && !apperrors.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == MaxRetries-1 {
			break
		}

		wait := delay
		if after := apperrors.RetryAfter(lastErr); after > wait {
			wait = after
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
		delay *= 2
	}

	return apperrors.NewTransientError("retry attempts exhausted", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
