package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether a caller may perform one more toggle.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per key, shared by every server
// instance pointed at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter connects to redisURL and allows limit calls per key per
// minute.
func NewRedisLimiter(redisURL string, limit int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisLimiter{
		client: client,
		prefix: "presets:toggle:",
		limit:  int64(limit),
		window: time.Minute,
		now:    time.Now,
	}, nil
}

func (l *RedisLimiter) key(k string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", l.prefix, k, slot)
}

// Allow counts the call and reports whether it is within the window's limit.
func (l *RedisLimiter) Allow(ctx context.Context, k string) (bool, error) {
	key := l.key(k)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", k, err)
	}
	return incr.Val() <= l.limit, nil
}

// Close closes the Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
