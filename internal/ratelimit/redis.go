package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "ratelimit:"

// RedisLimiter shares counters between instances. It fails open when redis
// is unreachable.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	key = keyPrefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true, 0
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		retryAfter = window
	}
	return incr.Val() <= int64(limit), retryAfter
}
