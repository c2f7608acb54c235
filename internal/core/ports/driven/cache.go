package driven

import (
	"context"
	"time"
)

// CacheBackend is a byte-oriented key/value store with expiry.
// It carries the serialized result sets of the result cache.
//
// Every method may fail independently. Callers treat failures as a miss
// or a skipped write; they never fail the surrounding operation.
type CacheBackend interface {
	// Name returns the backend name for logging.
	Name() string

	// Get returns the value for key. The boolean is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, expiring after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
