package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kurihiro0119/github-profile-miner/internal/errors"
)

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryRecoversFromRateLimit(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return apperrors.NewRateLimitedError("secondary limit", 10*time.Millisecond)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Two backoffs at the 1s and 2s floor
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Second)
}

func TestWithRetryHonorsRetryAfterOverFloor(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 2 {
			return apperrors.NewRateLimitedError("core quota", 1500*time.Millisecond)
		}
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 1500*time.Millisecond)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		attempts++
		return apperrors.NewTransientError("connection reset", nil)
	})

	require.Error(t, err)
	assert.Equal(t, MaxRetries, attempts)
	assert.True(t, apperrors.IsTransient(err))
	// Only the two inter-attempt backoffs (1s + 2s), no sleep after
	// the last attempt
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 3*time.Second)
	assert.Less(t, elapsed, 4*time.Second)
}

func TestWithRetryExhaustionSkipsFinalWait(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		attempts++
		return apperrors.NewRateLimitedError("core quota", 50*time.Millisecond)
	})

	require.Error(t, err)
	assert.Equal(t, MaxRetries, attempts)
	assert.True(t, apperrors.IsTransient(err))
	// The last failure must surface without waiting its retry-after
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 3*time.Second)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestWithRetryDoesNotRetryNotFound(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return apperrors.NewNotFoundError("user ghost")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := WithRetry(ctx, func() error {
		attempts++
		return apperrors.NewTransientError("timeout", nil)
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
