package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures OpenRedis. Zero values pick defaults.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	PoolSize int
	// Timeout bounds dial, read and write individually.
	Timeout     time.Duration
	PingTimeout time.Duration
}

// OpenRedis creates a client and verifies the server answers PING.
func OpenRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	if o.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            o.Addr,
		Password:        o.Password,
		DB:              o.DB,
		PoolSize:        o.PoolSize,
		DialTimeout:     o.Timeout,
		ReadTimeout:     o.Timeout,
		WriteTimeout:    o.Timeout,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, o.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// windowCounterScript increments a counter that lives for one window and
// returns the new count. The first hit of a window starts its expiry; a key
// that somehow lost its TTL gets one again instead of counting forever.
var windowCounterScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// HitFixedWindow counts one hit against key and reports whether the count is
// still within limit for the current window.
func HitFixedWindow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error) {
	switch {
	case rdb == nil:
		return false, errors.New("redis client is nil")
	case key == "":
		return false, errors.New("key is required")
	case limit <= 0:
		return false, errors.New("limit must be > 0")
	case window <= 0:
		return false, errors.New("window must be > 0")
	}

	n, err := windowCounterScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("window counter: %w", err)
	}
	return n <= int64(limit), nil
}

// ResetFixedWindow drops the counter for key.
func ResetFixedWindow(ctx context.Context, rdb redis.Cmdable, key string) error {
	if rdb == nil {
		return errors.New("redis client is nil")
	}
	if key == "" {
		return errors.New("key is required")
	}
	return rdb.Del(ctx, key).Err()
}
