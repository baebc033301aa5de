package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter shared by every replica.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedis returns a limiter storing counters under prefix in rdb.
func NewRedis(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *Redis) key(key string) string {
	bucket := time.Now().UnixNano() / int64(r.window)
	return fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.key(key)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("increment rate counter %s: %w", k, err)
	}
	return incr.Val() <= int64(r.limit), nil
}
