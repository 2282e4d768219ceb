package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)

	rl, err := NewRedisRateLimiter(fmt.Sprintf("redis://%s/0", mr.Addr()), limit, window)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })
	return rl
}

func TestRedisRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiterKeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different caller is not affected.
	allowed, err = rl.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNewRedisRateLimiterBadURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-url", 10, time.Minute)
	assert.Error(t, err)
}

func TestNoOpRateLimiter(t *testing.T) {
	rl := NoOpRateLimiter{}
	for i := 0; i < 100; i++ {
		allowed, err := rl.Allow(context.Background(), "any")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, rl.Close())
}
