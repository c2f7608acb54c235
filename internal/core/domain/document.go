package domain

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// Document represents a source file of the corpus after text extraction.
// A document is created on ingest, superseded on re-ingest and removed on delete.
type Document struct {
	// ID is the slash-separated path relative to the corpus root
	// (e.g. "recetas/desayuno_avena.txt"). Upload ingests use the category
	// and filename instead.
	ID string

	// Filename is the base name of the file.
	Filename string

	// Category is derived from the containing folder or the upload batch.
	Category string

	// Path is the local file path, empty for uploads.
	Path string

	// Content is the extracted plain text.
	Content string

	// SizeBytes is the size of the original file.
	SizeBytes int64

	// IndexedAt is when the document was ingested.
	IndexedAt time.Time
}

// NewDocumentID builds a document ID from a category and a filename.
func NewDocumentID(category, filename string) string {
	if category == "" {
		return filename
	}
	return path.Join(category, filename)
}

// Chunk represents a searchable unit within a document.
type Chunk struct {
	// ID is "{document_id}_{position}", unique and stable for an ingest run.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk (non-empty after trimming).
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Length is the number of characters in Content.
	Length int

	// Embedding is the vector representation, set just before indexing.
	Embedding []float32

	// Metadata holds the chunk tags.
	Metadata Metadata
}

// ChunkID returns the identity of the chunk at position within a document.
func ChunkID(documentID string, position int) string {
	return documentID + "_" + strconv.Itoa(position)
}

// DocumentIDFromChunkID strips the ordinal suffix of a chunk ID.
// Returns the input unchanged when it carries no suffix.
func DocumentIDFromChunkID(chunkID string) string {
	i := strings.LastIndexByte(chunkID, '_')
	if i < 0 {
		return chunkID
	}
	if _, err := strconv.Atoi(chunkID[i+1:]); err != nil {
		return chunkID
	}
	return chunkID[:i]
}
