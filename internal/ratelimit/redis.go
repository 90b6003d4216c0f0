package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rachelandtim/wedding-api/pkg/logger"
)

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	requests int
	window   time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		requests: requests,
		window:   window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	// Hash the key for privacy; raw client IPs never land in Redis.
	hashed := fmt.Sprintf("%s:%x", l.prefix, sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, err := l.client.Incr(ctx, hashed).Result()
	if err != nil {
		// Fail open: a broken limiter must not take the site down.
		logger.WarnContext(ctx, "Rate limit check failed, allowing request", "error", err)
		return true, nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, hashed, l.window).Err(); err != nil {
			logger.WarnContext(ctx, "Failed to set rate limit expiry", "error", err)
		}
	}

	return count <= int64(l.requests), nil
}
