package driving

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// RetrievalService is the top-level retrieval API used by the CLI and MCP adapters.
type RetrievalService interface {
	// Ingest walks the corpus tree under root and indexes every supported file.
	// In full mode the collection is cleared first: this is a destructive,
	// non-incremental refresh and searches running concurrently may observe a
	// partially rebuilt collection. Per-file failures are skipped and reported.
	Ingest(ctx context.Context, root string, opts domain.IngestOptions) (*domain.IngestReport, error)

	// IngestDocument indexes a single uploaded file, replacing any previous
	// chunks of the same document.
	IngestDocument(ctx context.Context, upload domain.DocumentUpload) (*domain.DocumentInfo, error)

	// Search runs a semantic query, consulting the result cache when enabled.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

	// AssembleContext runs the sub-queries of the requested strategy and
	// merges them into one deduplicated, ranked context.
	AssembleContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResponse, error)

	// Stats summarises the collection from a bounded sample.
	Stats(ctx context.Context) (*domain.Stats, error)

	// ListDocuments groups stored chunks by document.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// DeleteDocument removes every chunk of one document and returns the count.
	// Returns domain.ErrNotFound when the document has no chunks.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Clear removes every chunk from the collection.
	Clear(ctx context.Context) error

	// Health probes the embedding service, vector index and cache backend.
	Health(ctx context.Context) domain.HealthReport
}
