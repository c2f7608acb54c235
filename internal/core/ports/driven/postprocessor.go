package driven

import (
	"context"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

// PostProcessor is one stage of the ingest pipeline.
//
// The first stage (the chunker) receives nil chunks and splits the document
// text. Later stages, such as the metadata extractor, receive the chunks of
// the previous stage and return them enriched. A stage may drop chunks but
// must keep the order of those it returns.
type PostProcessor interface {
	// Name identifies the stage in pipeline configuration and logs.
	Name() string

	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a normalised document into indexable chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
