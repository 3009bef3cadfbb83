package ratelimiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "ratelimit:"

// RedisFixedWindow shares the fixed-window counters between API instances.
// If redis is unreachable it lets requests through.
type RedisFixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.SugaredLogger
}

func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration, logger *zap.SugaredLogger) *RedisFixedWindow {
	return &RedisFixedWindow{client: client, limit: limit, window: window, logger: logger}
}

func (rl *RedisFixedWindow) Allow(key string) (bool, time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	k := redisKeyPrefix + key

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, rl.window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warnw("rate limiter unavailable", "error", err)
		return true, 0
	}

	if incr.Val() > int64(rl.limit) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = rl.window
		}
		return false, retry
	}
	return true, 0
}
