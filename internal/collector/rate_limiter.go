package collector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// githubRateLimit is the authenticated hourly quota.
	githubRateLimit = 5000

	// proactiveRate throttles to ~1.2 req/sec (4320/hr) so a run
	// never burns the full quota.
	proactiveRate = 1.2

	// minBuffer is the remaining-request floor below which the
	// limiter waits for the reset instead of issuing calls.
	minBuffer = 10
)

// RateLimiter manages GitHub API rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
	Remaining() int
}

// githubRateLimiter combines a proactive token bucket with reactive
// header-driven quota tracking.
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	bucket    *rate.Limiter
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() RateLimiter {
	return &githubRateLimiter{
		remaining: githubRateLimit,
		resetTime: time.Now().Add(time.Hour),
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// Wait waits until it's safe to make another API call
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining > minBuffer || !time.Now().Before(resetTime) {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Until(resetTime)):
	}

	// Quota refreshed after the reset
	r.mu.Lock()
	r.remaining = githubRateLimit
	r.resetTime = time.Now().Add(time.Hour)
	r.mu.Unlock()
	return nil
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	if !resetTime.IsZero() {
		r.resetTime = resetTime
	}
}

// Remaining returns the currently known remaining quota
func (r *githubRateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}
