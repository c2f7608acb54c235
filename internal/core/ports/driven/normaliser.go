package driven

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// Normaliser extracts plain text from raw files.
// Each normaliser handles specific file extensions (e.g., .txt, .docx).
type Normaliser interface {
	// SupportedExtensions returns the lowercase extensions handled, with leading dot.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document with Content set.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces a Document with Content.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
