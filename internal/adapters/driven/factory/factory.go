// Package factory builds the driven adapters selected by the application settings.
package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	memorycache "github.com/custodia-labs/nutrirag/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/nutrirag/internal/adapters/driven/cache/redis"
	ollamaembed "github.com/custodia-labs/nutrirag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/nutrirag/internal/adapters/driven/embedding/openai"
	memoryvector "github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/qdrant"
	sqlitevector "github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/sqlite"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Backends holds the adapters built for one process.
type Backends struct {
	Embedding driven.EmbeddingService
	Index     driven.VectorIndex
	Cache     driven.CacheBackend // nil when caching is disabled
}

// Close releases all resources held by the backends.
func (b *Backends) Close() error {
	var errs []error
	if b.Cache != nil {
		errs = append(errs, b.Cache.Close())
	}
	if b.Index != nil {
		errs = append(errs, b.Index.Close())
	}
	if b.Embedding != nil {
		errs = append(errs, b.Embedding.Close())
	}
	return errors.Join(errs...)
}

// Build creates every backend named by settings. Nothing is pinged; a
// down dependency surfaces on first use or through a health check.
func Build(ctx context.Context, settings domain.AppSettings) (*Backends, error) {
	emb, err := CreateEmbeddingService(settings.Embedding)
	if err != nil {
		return nil, err
	}

	vectorSettings := settings.Vector
	if vectorSettings.Dimensions == 0 {
		vectorSettings.Dimensions = emb.Dimensions()
	}
	index, err := CreateVectorIndex(ctx, vectorSettings)
	if err != nil {
		emb.Close()
		return nil, err
	}

	cache, err := CreateCacheBackend(settings.Cache)
	if err != nil {
		index.Close()
		emb.Close()
		return nil, err
	}

	return &Backends{Embedding: emb, Index: index, Cache: cache}, nil
}

// CreateEmbeddingService creates the embedding service for settings.
func CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("embedding provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
	if !settings.IsConfigured() {
		return nil, &domain.ProviderError{
			Provider: settings.Provider.String(),
			Op:       "configure",
			Err:      fmt.Errorf("%w: API key is required", domain.ErrAuthInvalid),
		}
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        dimensions,
			BatchSize:         settings.BatchSize,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        dimensions,
			BatchSize:         settings.BatchSize,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("embedding provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
}

// Ensure Validator implements the interface.
var _ driven.EmbeddingValidator = Validator{}

// Validator validates embedding settings by pinging the provider.
type Validator struct{}

// ValidateEmbedding implements driven.EmbeddingValidator.
func (Validator) ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(ctx, settings)
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateVectorIndex opens the vector index for settings.
func CreateVectorIndex(ctx context.Context, settings domain.VectorSettings) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memoryvector.New(settings.Collection, settings.Dimensions), nil

	case domain.VectorBackendSQLite:
		return sqlitevector.New(settings.DSN, settings.Collection, settings.Dimensions)

	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        settings.DSN,
			Collection: settings.Collection,
			Dimensions: settings.Dimensions,
		})

	case domain.VectorBackendPgvector:
		return pgvector.New(ctx, pgvector.Config{
			DSN:        settings.DSN,
			Collection: settings.Collection,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("vector backend %q: %w", settings.Backend, domain.ErrUnsupportedType)
	}
}

// CreateCacheBackend creates the cache backend for settings.
// Returns nil when caching is disabled.
func CreateCacheBackend(settings domain.CacheSettings) (driven.CacheBackend, error) {
	if !settings.Enabled() {
		return nil, nil
	}

	switch settings.Backend {
	case domain.CacheBackendMemory:
		return memorycache.New(settings.MaxEntries), nil

	case domain.CacheBackendRedis:
		return rediscache.New(settings.URL)

	default:
		return nil, fmt.Errorf("cache backend %q: %w", settings.Backend, domain.ErrUnsupportedType)
	}
}
