// Package redis connects the shared aggregation cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"qara/internal/platform/config"
)

const (
	clientName   = "qara"
	connectRetry = 10 * time.Second
)

// Client is a pooled connection with a health probe for /healthz.
type Client struct {
	*goredis.Client
}

// New dials the configured Redis and waits until it answers PING, retrying
// for a short while so the API can start alongside the cache. A blank URL
// means no shared cache and yields (nil, nil).
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	applyPool(opts, cfg)

	rdb := goredis.NewClient(opts)
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectRetry
	ping := func() error { return rdb.Ping(ctx).Err() }
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// applyPool copies non-zero pool settings over the URL defaults.
func applyPool(opts *goredis.Options, cfg config.RedisConfig) {
	opts.ClientName = clientName
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
