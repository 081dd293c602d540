package limiter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis keeps counters in Redis so every server replica sees the same
// lockout state. Each failure refreshes the key's TTL to Window.
type Redis struct {
	cfg    Config
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, cfg Config) *Redis {
	return &Redis{cfg: cfg.withDefaults(), client: client, prefix: "drugbox:fpfail:"}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Locked(ctx context.Context, key string) (bool, error) {
	if r.cfg.MaxFailures <= 0 {
		return false, nil
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("limiter get: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, fmt.Errorf("limiter parse %q: %w", v, err)
	}
	return n >= int64(r.cfg.MaxFailures), nil
}

func (r *Redis) Fail(ctx context.Context, key string) (int64, error) {
	k := r.key(key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("limiter incr: %w", err)
	}
	return incr.Val(), nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("limiter del: %w", err)
	}
	return nil
}
