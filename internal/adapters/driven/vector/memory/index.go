// Package memory provides a process-local vector index.
// Contents are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const backendName = "memory"

// Index is an in-memory brute-force cosine index.
type Index struct {
	mu         sync.RWMutex
	collection string
	dimensions int
	records    map[string]driven.VectorRecord
}

// New creates an empty index. A dimensions value of zero accepts any length.
func New(collection string, dimensions int) *Index {
	return &Index{
		collection: collection,
		dimensions: dimensions,
		records:    make(map[string]driven.VectorRecord),
	}
}

// Name returns the backend name.
func (i *Index) Name() string { return backendName }

// Collection returns the collection name.
func (i *Index) Collection() string { return i.collection }

// Upsert stores records, replacing existing IDs.
func (i *Index) Upsert(_ context.Context, records []driven.VectorRecord) error {
	for _, r := range records {
		if r.ID == "" {
			return &domain.ValidationError{Field: "id", Reason: "must not be empty"}
		}
		if i.dimensions > 0 && len(r.Embedding) != i.dimensions {
			return &domain.ValidationError{
				Field:  "embedding",
				Reason: fmt.Sprintf("record %s has %d dimensions, want %d", r.ID, len(r.Embedding), i.dimensions),
			}
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		i.records[r.ID] = r
	}
	return nil
}

// Query ranks every record matching filter by cosine distance.
func (i *Index) Query(_ context.Context, embedding []float32, k int, filter domain.Filter) ([]driven.VectorMatch, error) {
	if k <= 0 {
		return []driven.VectorMatch{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	matches := make([]driven.VectorMatch, 0, len(i.records))
	for _, r := range i.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Distance: similarity.CosineDistance(embedding, r.Embedding),
		})
	}
	return similarity.TopK(matches, k), nil
}

// Delete removes records by ID.
func (i *Index) Delete(_ context.Context, ids []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, id := range ids {
		delete(i.records, id)
	}
	return nil
}

// DeleteByFilter removes every record matching filter.
func (i *Index) DeleteByFilter(_ context.Context, filter domain.Filter) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for id, r := range i.records {
		if filter.Matches(r.Metadata) {
			delete(i.records, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored records.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records), nil
}

// Sample returns up to limit matching records ordered by ID.
func (i *Index) Sample(_ context.Context, limit int, filter domain.Filter) ([]driven.VectorRecord, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	ids := make([]string, 0, len(i.records))
	for id, r := range i.records {
		if filter.Matches(r.Metadata) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]driven.VectorRecord, 0, len(ids))
	for _, id := range ids {
		r := i.records[id]
		r.Embedding = nil
		out = append(out, r)
	}
	return out, nil
}

// Ping always succeeds.
func (i *Index) Ping(context.Context) error { return nil }

// Close releases resources.
func (i *Index) Close() error { return nil }
