package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// cacheKeyPrefix namespaces result cache keys in shared backends.
const cacheKeyPrefix = "search:"

// cacheEntry is the serialized form of a cached result set.
type cacheEntry struct {
	Results   []domain.SearchResult `json:"results"`
	CreatedAt time.Time             `json:"created_at"`
}

// resultCache maps query signatures to result sets on a byte-oriented backend.
// Every method reports backend failures as *domain.CacheError; callers treat
// them as a miss or a skipped write.
type resultCache struct {
	backend driven.CacheBackend
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

func newResultCache(backend driven.CacheBackend, ttl, timeout time.Duration) *resultCache {
	return &resultCache{
		backend: backend,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
	}
}

// cacheKey returns the signature of a search: SHA-256 over the normalized
// query, the result count and the category filter.
func cacheKey(query string, nResults int, category string) string {
	h := sha256.New()
	h.Write([]byte(normalizeQuery(query)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(nResults)))
	h.Write([]byte{0})
	h.Write([]byte(category))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// normalizeQuery lowercases, trims and collapses whitespace.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (c *resultCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// lookup returns the cached results for key. An expired or undecodable
// entry is deleted and reported as a miss.
func (c *resultCache) lookup(ctx context.Context, key string) ([]domain.SearchResult, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false, cacheErr("get", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = c.backend.Delete(ctx, key)
		return nil, false, cacheErr("decode", key, err)
	}

	if c.ttl > 0 && c.now().Sub(entry.CreatedAt) >= c.ttl {
		if err := c.backend.Delete(ctx, key); err != nil {
			return nil, false, cacheErr("evict", key, err)
		}
		return nil, false, nil
	}

	if entry.Results == nil {
		entry.Results = []domain.SearchResult{}
	}
	return entry.Results, true, nil
}

// store writes results under key with the configured TTL.
func (c *resultCache) store(ctx context.Context, key string, results []domain.SearchResult) error {
	data, err := json.Marshal(cacheEntry{Results: results, CreatedAt: c.now().UTC()})
	if err != nil {
		return cacheErr("encode", key, err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		return cacheErr("set", key, err)
	}
	return nil
}

func cacheErr(op, key string, err error) error {
	var cerr *domain.CacheError
	if errors.As(err, &cerr) {
		return &domain.CacheError{Op: op, Key: key, Err: cerr.Err}
	}
	return &domain.CacheError{Op: op, Key: key, Err: domain.WrapTimeout(err)}
}

func asCacheError(err error) (*domain.CacheError, bool) {
	var cerr *domain.CacheError
	ok := errors.As(err, &cerr)
	return cerr, ok
}
