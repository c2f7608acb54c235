// Package memory provides an in-process cache backend with TTL expiry
// and insertion-order eviction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.CacheBackend = (*Cache)(nil)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 1000

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a bounded map of byte values. When full, the oldest entry is evicted.
// Restarts clear the cache.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order for eviction
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most maxEntries values.
func New(maxEntries int, opts ...Option) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend name.
func (c *Cache) Name() string { return "memory" }

// Get returns the value for key. Expired entries are removed lazily.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores value under key. A ttl of zero or less never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	if _, exists := c.entries[key]; !exists {
		// Evict oldest if at capacity
		for len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = e
	return nil
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
	return nil
}

// Len returns the number of stored entries, including unexpired stale ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Ping always succeeds.
func (c *Cache) Ping(context.Context) error { return nil }

// Close drops every entry.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.order = nil
	return nil
}

// remove drops key from entries and from the insertion order.
// Must be called with mu held.
func (c *Cache) remove(key string) {
	if _, exists := c.entries[key]; !exists {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
// order holds exactly the keys in entries, oldest first.
func (c *Cache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}
