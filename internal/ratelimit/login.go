package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/roomlease/internal/config"
	"go.uber.org/zap"
)

const keyLoginIP = "auth:login:ip:%s"

// LoginLimiter throttles credential attempts per client address. A nil
// limiter allows everything.
type LoginLimiter struct {
	bucket *TokenBucket
	log    *zap.Logger
	rate   float64
	burst  int
}

func NewLoginLimiter(bucket *TokenBucket, cfg config.Config, log *zap.Logger) *LoginLimiter {
	if bucket == nil || cfg.LoginRatePerMinute <= 0 {
		return nil
	}
	return &LoginLimiter{
		bucket: bucket,
		log:    log.Named("ratelimit.login"),
		rate:   float64(cfg.LoginRatePerMinute) / 60,
		burst:  cfg.LoginRatePerMinute,
	}
}

// Allow fails open when redis is unreachable.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) bool {
	if l == nil {
		return true
	}
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		return true
	}

	result, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginIP, clientIP), l.rate, l.burst)
	if err != nil {
		l.log.Warn("login limiter unavailable", zap.Error(err))
		return true
	}
	return result.Allowed
}
