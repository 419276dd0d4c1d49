package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterTracksHeaders(t *testing.T) {
	r := NewRateLimiter()
	assert.Equal(t, githubRateLimit, r.Remaining())

	reset := time.Now().Add(30 * time.Minute)
	r.UpdateLimit(1234, reset)
	assert.Equal(t, 1234, r.Remaining())
}

func TestRateLimiterWaitPassesWithQuota(t *testing.T) {
	r := NewRateLimiter()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestRateLimiterWaitBlocksUntilReset(t *testing.T) {
	r := NewRateLimiter()
	r.UpdateLimit(0, time.Now().Add(150*time.Millisecond))

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	// Quota is assumed refreshed after the reset passes
	assert.Equal(t, githubRateLimit, r.Remaining())
}

func TestRateLimiterWaitHonorsCancel(t *testing.T) {
	r := NewRateLimiter()
	r.UpdateLimit(0, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterIgnoresZeroReset(t *testing.T) {
	r := NewRateLimiter()
	before := time.Now()

	r.UpdateLimit(100, time.Time{})
	assert.Equal(t, 100, r.Remaining())

	limiter := r.(*githubRateLimiter)
	assert.True(t, limiter.resetTime.After(before))
}
