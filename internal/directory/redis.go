package directory

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDirectory lets nodes publish their own address and look up others.
// Lookups that miss fall back to the static resolver.
type RedisDirectory struct {
	client   kv
	prefix   string
	ttl      time.Duration
	fallback Resolver
	logger   *zap.Logger
}

func NewRedisDirectory(client kv, prefix string, ttl time.Duration, fallback Resolver, logger *zap.Logger) *RedisDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDirectory{client: client, prefix: prefix, ttl: ttl, fallback: fallback, logger: logger}
}

func (d *RedisDirectory) key(identity string) string {
	return d.prefix + identity
}

func (d *RedisDirectory) Resolve(ctx context.Context, identity string) (string, error) {
	addr, err := d.client.Get(ctx, d.key(identity)).Result()
	if err == nil && addr != "" {
		return addr, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		d.logger.Warn("peer directory lookup failed", zap.String("peer", identity), zap.Error(err))
	}
	return d.fallback.Resolve(ctx, identity)
}

// Register publishes this node's address with the directory TTL.
func (d *RedisDirectory) Register(ctx context.Context, identity, addr string) error {
	return d.client.Set(ctx, d.key(identity), addr, d.ttl).Err()
}

func (d *RedisDirectory) Deregister(ctx context.Context, identity string) error {
	return d.client.Del(ctx, d.key(identity)).Err()
}

// Heartbeat re-registers at half the TTL until ctx is done.
func (d *RedisDirectory) Heartbeat(ctx context.Context, identity, addr string) {
	interval := d.ttl / 2
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.Register(ctx, identity, addr); err != nil {
			d.logger.Warn("peer directory heartbeat failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
