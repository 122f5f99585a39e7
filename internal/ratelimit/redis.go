package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGate keeps fixed-window counters in Redis so the limit holds across
// replicas. Windows are aligned to the epoch (INCR on a per-bucket key with
// a TTL of one window).
type RedisGate struct {
	client *redis.Client
	size   time.Duration
	max    int
}

func NewRedisGate(addr, password string, size time.Duration, max int) (*RedisGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisGate{client: client, size: size, max: max}, nil
}

func (g *RedisGate) Allow(ctx context.Context, fingerprint string) error {
	bucket := time.Now().Unix() / int64(g.size.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%d", fingerprint, bucket)

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, g.size)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open when Redis is unreachable.
		slog.Warn("ratelimit: redis unavailable, allowing request", "error", err)
		return nil
	}

	if incr.Val() > int64(g.max) {
		return ErrLimited
	}

	return nil
}

func (g *RedisGate) Close() error {
	return g.client.Close()
}
