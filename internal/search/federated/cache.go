package federated

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"personfinder/pkg/platform/cache"
)

// PeerCache keeps successful peer payloads per (domain, query). Lookups
// never fail: backend errors count as misses.
type PeerCache interface {
	Get(ctx context.Context, key string) (*Payload, bool)
	Set(ctx context.Context, key string, payload *Payload)
}

// CacheKey scopes key to domain.
func CacheKey(domain, queryKey string) string {
	return "pf:peer:" + domain + ":" + queryKey
}

// MemoryCache is the in-process PeerCache.
type MemoryCache struct {
	entries *cache.Cache[string, Payload]
}

func NewMemoryCache(entries *cache.Cache[string, Payload]) *MemoryCache {
	return &MemoryCache{entries: entries}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Payload, bool) {
	p, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *MemoryCache) Set(_ context.Context, key string, payload *Payload) {
	c.entries.Set(key, *payload)
}

// Stats exposes the underlying cache counters.
func (c *MemoryCache) Stats() cache.Stats {
	return c.entries.Stats()
}

// RedisCache shares peer payloads between server instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Payload, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "peer cache read failed", "key", key, "error", err)
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.WarnContext(ctx, "peer cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, key string, payload *Payload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "peer cache write failed", "key", key, "error", err)
	}
}
