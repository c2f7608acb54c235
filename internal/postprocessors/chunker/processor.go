// Package chunker provides the text chunking policies and the chunking processor.
package chunker

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor turns document content into chunks using a chunking policy.
// It implements the PostProcessor interface.
type Processor struct {
	chunker driven.Chunker
}

// New creates a chunking processor. A nil chunker falls back to the
// character policy with default sizes.
func New(chunker driven.Chunker) *Processor {
	if chunker == nil {
		chunker = NewCharacter()
	}
	return &Processor{chunker: chunker}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Policy returns the underlying chunking policy name.
func (p *Processor) Policy() string {
	return p.chunker.Name()
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	texts := p.chunker.Chunk(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			Length:     utf8.RuneCountInString(text),
		})
	}

	return chunks, nil
}
