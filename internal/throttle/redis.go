package throttle

import (
	"context"
	"errors"
	"time"

	"tasky-api/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tasky:login:"

// RedisLimiter is a fixed-window limiter shared by every API instance.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("throttle: redis client is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("throttle: limit and window must be positive")
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return utils.HitFixedWindow(ctx, l.rdb, redisKey(key), l.limit, l.window)
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return utils.ResetFixedWindow(ctx, l.rdb, redisKey(key))
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}
