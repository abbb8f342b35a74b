package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter keys so Reset can find them.
const keyPrefix = "faults:ratelimit:"

// RedisLimiter counts occurrences in Redis so several generator processes
// share one window budget per fingerprint. The first INCR of a window sets
// the key's expiry to the window length; admission is count <= max.
type RedisLimiter struct {
	client *redis.Client
	opts   Options
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration
}

// NewRedisLimiter connects to Redis and returns a shared-window limiter.
func NewRedisLimiter(ropts RedisOptions, opts Options) (*RedisLimiter, error) {
	if ropts.URL == "" {
		ropts.URL = "redis://localhost:6379"
	}
	if ropts.ConnectTimeout == 0 {
		ropts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(ropts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = ropts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), ropts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLimiterFromClient(client, opts), nil
}

// NewRedisLimiterFromClient wraps an existing client, which the caller
// remains responsible for closing.
func NewRedisLimiterFromClient(client *redis.Client, opts Options) *RedisLimiter {
	return &RedisLimiter{client: client, opts: opts.withDefaults()}
}

// Allow increments the fingerprint's window counter and reports whether
// this occurrence is within budget. On the first occurrence of a window
// the key's expiry is set to the window length, so the counter resets by
// key expiry rather than by wall-clock comparison.
func (l *RedisLimiter) Allow(ctx context.Context, fingerprint string) (bool, error) {
	key := keyPrefix + fingerprint

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count occurrence: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, key, l.opts.Window).Err(); err != nil {
			return false, fmt.Errorf("failed to arm window expiry: %w", err)
		}
	}

	return count <= int64(l.opts.MaxPerWindow), nil
}

// Reset deletes every limiter key.
func (l *RedisLimiter) Reset(ctx context.Context) error {
	iter := l.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete limiter key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan limiter keys: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
