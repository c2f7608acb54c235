package driven

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// EmbeddingValidator verifies an embedding configuration by contacting the provider.
type EmbeddingValidator interface {
	// ValidateEmbedding returns nil when the provider accepts the configuration.
	ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error
}
