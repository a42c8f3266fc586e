package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/roomlease/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNilLoginLimiterAllows(t *testing.T) {
	var limiter *LoginLimiter
	assert.True(t, limiter.Allow(context.Background(), "10.0.0.1"))

	assert.Nil(t, NewLoginLimiter(nil, config.Config{LoginRatePerMinute: 10}, zap.NewNop()))
}

func TestLockerWithoutRedis(t *testing.T) {
	locker := NewLocker(nil)
	assert.False(t, locker.Enabled())

	lease, err := locker.TryAcquire(context.Background(), "job", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.Nil(t, lease)
	assert.NoError(t, locker.Release(context.Background(), &Lease{Key: "job", Token: "t"}))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), retryAfter(1, 1))
	assert.Equal(t, 2*time.Second, retryAfter(0, 0.5))
	assert.Equal(t, 500*time.Millisecond, retryAfter(0.5, 1))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, bucketTTL(0.5, 10))
	assert.Equal(t, time.Second, bucketTTL(1000, 1))
}

func TestScriptValueConversion(t *testing.T) {
	assert.Equal(t, int64(1), toInt64(int64(1)))
	assert.Equal(t, int64(1), toInt64("1"))
	assert.Equal(t, int64(0), toInt64(nil))
	assert.InDelta(t, 2.5, toFloat64("2.5"), 1e-9)
	assert.InDelta(t, 3.0, toFloat64(int64(3)), 1e-9)
}
