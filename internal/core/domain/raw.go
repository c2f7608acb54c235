package domain

import "time"

// RawDocument represents opaque file bytes before text extraction.
// It is the ingest walker's (or an upload's) output before normalisation.
type RawDocument struct {
	// DocumentID is the identity the normalised Document will carry.
	DocumentID string

	// Filename is the base name, used for extension dispatch.
	Filename string

	// Category is derived from the containing folder or upload batch.
	Category string

	// Path is the local file path, empty for uploads.
	Path string

	// MIMEType is the content type guessed from the extension.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// ToDocument builds the normalised document for this file with the given text.
func (r *RawDocument) ToDocument(content string, indexedAt time.Time) Document {
	id := r.DocumentID
	if id == "" {
		id = NewDocumentID(r.Category, r.Filename)
	}
	return Document{
		ID:        id,
		Filename:  r.Filename,
		Category:  r.Category,
		Path:      r.Path,
		Content:   content,
		SizeBytes: int64(len(r.Content)),
		IndexedAt: indexedAt,
	}
}
