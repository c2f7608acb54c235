package driven

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// VectorIndex is a managed collection of embedded chunks supporting
// metadata-filtered nearest-neighbour queries. Distances are cosine
// distances: lower is closer.
//
// Implementations are safe for concurrent use. Failures are returned
// as *domain.StorageError.
type VectorIndex interface {
	// Name returns the backend name for logging and stats.
	Name() string

	// Collection returns the collection name.
	Collection() string

	// Upsert inserts records, replacing any existing record with the same ID.
	// IDs must be unique within one call.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns at most k matches ordered by ascending distance.
	// An empty collection or match set yields an empty slice, not an error.
	Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]VectorMatch, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFilter removes every record matching filter and returns
	// the number removed. An empty filter clears the collection.
	DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Sample returns up to limit records matching filter, without embeddings.
	// A limit of zero or less returns every match.
	Sample(ctx context.Context, limit int, filter domain.Filter) ([]VectorRecord, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is one stored chunk.
type VectorRecord struct {
	// ID is the chunk ID.
	ID string

	// Text is the chunk content.
	Text string

	// Embedding is the chunk vector. Empty on Sample results.
	Embedding []float32

	// Metadata is the chunk metadata.
	Metadata domain.Metadata
}

// VectorMatch is a query hit.
type VectorMatch struct {
	// ID is the matched chunk ID.
	ID string

	// Text is the chunk content.
	Text string

	// Metadata is the chunk metadata.
	Metadata domain.Metadata

	// Distance is the cosine distance to the query vector.
	Distance float64
}

// RecordFromChunk converts an embedded chunk into a VectorRecord.
func RecordFromChunk(c domain.Chunk) VectorRecord {
	return VectorRecord{
		ID:        c.ID,
		Text:      c.Content,
		Embedding: c.Embedding,
		Metadata:  c.Metadata,
	}
}
