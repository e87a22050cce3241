package ratelimiter_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/service/ratelimiter"
)

func newTestLimiter(t *testing.T, buckets map[string]ratelimiter.BucketConfig) *ratelimiter.RedisLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return ratelimiter.NewRedisLimiter(rdb, buckets)
}

func TestRedisLimiter_AllowWithinCapacity(t *testing.T) {
	l := newTestLimiter(t, map[string]ratelimiter.BucketConfig{
		"ai": {Capacity: 3, RefillRate: 0.001},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "ai", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i)
	}

	allowed, retryAfter, err := l.Allow(ctx, "ai", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter.Seconds(), 0.0)
}

func TestRedisLimiter_UnconfiguredKeyFailsOpen(t *testing.T) {
	l := newTestLimiter(t, nil)
	allowed, retryAfter, err := l.Allow(context.Background(), "unknown", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestRedisLimiter_NilLimiterFailsOpen(t *testing.T) {
	var l *ratelimiter.RedisLimiter
	allowed, _, err := l.Allow(context.Background(), "ai", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_SetBucketConfig(t *testing.T) {
	l := newTestLimiter(t, map[string]ratelimiter.BucketConfig{})
	ctx := context.Background()

	// Unconfigured: passes through.
	allowed, _, err := l.Allow(ctx, "ai", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	l.SetBucketConfig("ai", ratelimiter.BucketConfig{Capacity: 1, RefillRate: 0.001})
	allowed, _, err = l.Allow(ctx, "ai", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, err = l.Allow(ctx, "ai", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	cfg := ratelimiter.NewBucketConfigFromPerMinute(30)
	assert.Equal(t, int64(30), cfg.Capacity)
	assert.InDelta(t, 0.5, cfg.RefillRate, 1e-9)

	assert.Zero(t, ratelimiter.NewBucketConfigFromPerMinute(0))
}
