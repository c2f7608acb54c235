package driven

import "github.com/custodia-labs/nutrirag/internal/core/domain"

// RecipeClassifier derives recipe tags from a chunk.
// Implementations must be deterministic and side-effect free.
type RecipeClassifier interface {
	// Classify returns recipe metadata for a chunk text and its source filename.
	Classify(text, filename string) domain.RecipeMetadata
}

// MetadataExtractor builds chunk metadata.
type MetadataExtractor interface {
	// Extract returns the metadata for one chunk of doc.
	Extract(doc *domain.Document, text string, chunkIndex int) domain.Metadata
}
