// Package metadata tags chunks with structured metadata.
//
// Every chunk receives source, category, document and position tags.
// Chunks of recipe categories additionally receive heuristic recipe tags
// from a pluggable classifier.
package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Extractor implements the interfaces.
var (
	_ driven.MetadataExtractor = (*Extractor)(nil)
	_ driven.PostProcessor     = (*Extractor)(nil)
)

// Extractor builds chunk metadata.
type Extractor struct {
	recipeCategories map[string]bool
	classifier       driven.RecipeClassifier
	now              func() time.Time
}

// Option configures the extractor.
type Option func(*Extractor)

// WithRecipeCategories sets the categories that trigger recipe tagging.
// Matching is case-insensitive.
func WithRecipeCategories(categories ...string) Option {
	return func(e *Extractor) {
		e.recipeCategories = make(map[string]bool, len(categories))
		for _, c := range categories {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				e.recipeCategories[c] = true
			}
		}
	}
}

// WithClassifier replaces the recipe classifier.
func WithClassifier(c driven.RecipeClassifier) Option {
	return func(e *Extractor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithClock sets the time source used when a document has no IndexedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates a metadata extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		classifier: NewKeywordClassifier(),
		now:        time.Now,
	}
	WithRecipeCategories(domain.DefaultAppSettings().Retrieval.RecipeCategories...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the processor name.
func (e *Extractor) Name() string {
	return "metadata"
}

// IsRecipeCategory reports whether category triggers recipe tagging.
func (e *Extractor) IsRecipeCategory(category string) bool {
	return e.recipeCategories[strings.ToLower(category)]
}

// Extract returns the metadata for one chunk of doc.
func (e *Extractor) Extract(doc *domain.Document, text string, chunkIndex int) domain.Metadata {
	indexedAt := doc.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = e.now()
	}

	meta := domain.Metadata{
		Source:     doc.Filename,
		Category:   doc.Category,
		DocumentID: doc.ID,
		ChunkIndex: chunkIndex,
		Timestamp:  indexedAt.UTC().Format(time.RFC3339),
		FilePath:   doc.Path,
		SizeBytes:  doc.SizeBytes,
	}

	if e.IsRecipeCategory(doc.Category) {
		recipe := e.classifier.Classify(text, doc.Filename)
		recipe.Type = domain.RecipeType
		meta.RecipeMetadata = &recipe
	}
	return meta
}

// Process tags every chunk in place and records the chunk total.
func (e *Extractor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = e.now()
	}
	for i := range chunks {
		meta := e.Extract(doc, chunks[i].Content, chunks[i].Position)
		meta.TotalChunks = len(chunks)
		chunks[i].Metadata = meta
	}
	return chunks, nil
}
