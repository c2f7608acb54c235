// Package redis provides a cache backend on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.CacheBackend = (*Cache)(nil)

// DefaultURL is used when no URL is configured.
const DefaultURL = "redis://localhost:6379"

// Cache stores values with GET, SET EX and DEL.
type Cache struct {
	client *goredis.Client
}

// New connects lazily to the server at url (redis://[user:pass@]host:port/db).
func New(url string) (*Cache, error) {
	if url == "" {
		url = DefaultURL
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, &domain.CacheError{Op: "configure", Err: fmt.Errorf("parse url: %w", err)}
	}
	return &Cache{client: goredis.NewClient(opts)}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Name returns the backend name.
func (c *Cache) Name() string { return "redis" }

// Get returns the value for key. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domain.CacheError{Op: "get", Key: key, Err: domain.WrapTimeout(err)}
	}
	return value, true, nil
}

// Set stores value under key with SET EX. A ttl of zero or less never expires.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return &domain.CacheError{Op: "set", Key: key, Err: domain.WrapTimeout(err)}
	}
	return nil
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return &domain.CacheError{Op: "delete", Key: key, Err: domain.WrapTimeout(err)}
	}
	return nil
}

// Ping verifies the server is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return &domain.CacheError{Op: "ping", Err: domain.WrapTimeout(err)}
	}
	return nil
}

// Close closes the client connections.
func (c *Cache) Close() error {
	return c.client.Close()
}
