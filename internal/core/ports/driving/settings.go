package driving

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetVectorBackend configures the vector index backend.
	SetVectorBackend(backend domain.VectorBackend, dsn string) error

	// Validate checks that current settings are usable.
	Validate() error

	// ValidateEmbeddingConfig checks that the configured provider is reachable.
	ValidateEmbeddingConfig(ctx context.Context) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
