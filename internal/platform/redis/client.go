// Package redis builds the shared go-redis client used by the peer response cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"personfinder/internal/platform/config"
)

// Client is the configured go-redis client plus a health probe for /health.
type Client struct {
	*redis.Client
}

// New dials cfg.URL and pings it within the dial timeout.
// An empty URL means Redis is not configured; New returns nil, nil.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether Redis still answers PING.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
