package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend, provider or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index failed or is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrCacheUnavailable indicates the result cache backend failed.
	// Cache failures never fail a search; they degrade it to uncached.
	ErrCacheUnavailable = errors.New("result cache unavailable")

	// ErrTimeout indicates a dependency call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimited indicates the provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the provider credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrIngestInProgress indicates an ingest run is already executing.
	ErrIngestInProgress = errors.New("ingest in progress")
)

// ValidationError describes a rejected request field.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ProviderError wraps a failure from the embedding provider.
// It matches ErrEmbeddingUnavailable and any wrapped cause.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEmbeddingUnavailable.
func (e *ProviderError) Is(target error) bool {
	return target == ErrEmbeddingUnavailable
}

// StorageError wraps a failure from the vector index backend.
// It matches ErrVectorIndexUnavailable and any wrapped cause.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrVectorIndexUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrVectorIndexUnavailable
}

// CacheError wraps a failure from the result cache backend.
// It matches ErrCacheUnavailable and any wrapped cause.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCacheUnavailable.
func (e *CacheError) Is(target error) bool {
	return target == ErrCacheUnavailable
}

// IsTimeout reports whether err is a deadline failure from a context or network call.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// WrapTimeout makes deadline failures match ErrTimeout while keeping the cause.
// Other errors are returned unchanged.
func WrapTimeout(err error) error {
	if err == nil || errors.Is(err, ErrTimeout) || !IsTimeout(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTimeout, err)
}
