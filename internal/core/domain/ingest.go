package domain

import "time"

// IngestMode selects how an ingest run treats existing index content.
type IngestMode string

// Available ingest modes.
const (
	// IngestModeFull clears the collection before indexing.
	IngestModeFull IngestMode = "full"

	// IngestModeIncremental replaces only the documents found on disk
	// and removes documents that no longer exist.
	IngestModeIncremental IngestMode = "incremental"
)

// IsValid returns true if the mode is recognised.
func (m IngestMode) IsValid() bool {
	return m == IngestModeFull || m == IngestModeIncremental
}

// IngestOptions configures an ingest run.
type IngestOptions struct {
	// Mode defaults to IngestModeFull when empty.
	Mode IngestMode

	// BatchSize overrides the configured upsert batch size when positive.
	BatchSize int

	// Exclude lists doublestar patterns matched against slash-separated
	// paths relative to the corpus root. Matching files and directories
	// are skipped without a report entry.
	Exclude []string
}

// SkippedFile records a corpus file that could not be ingested.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestReport summarises an ingest run.
type IngestReport struct {
	RunID            string        `json:"run_id"`
	Mode             IngestMode    `json:"mode"`
	DocumentsIndexed int           `json:"documents_indexed"`
	DocumentsRemoved int           `json:"documents_removed"`
	ChunksIndexed    int           `json:"chunks_indexed"`
	Batches          int           `json:"batches"`
	Skipped          []SkippedFile `json:"skipped,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// DocumentUpload is a single file submitted for ingestion.
type DocumentUpload struct {
	// Filename is the original file name; its extension selects the normaliser.
	Filename string

	// Category defaults to "general" when empty.
	Category string

	// Content is the raw file bytes.
	Content []byte
}

// DefaultUploadCategory is used when an upload has no category.
const DefaultUploadCategory = "general"

// DocumentInfo describes a freshly ingested document.
type DocumentInfo struct {
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	Category    string    `json:"category"`
	Chunks      int       `json:"chunks"`
	SizeBytes   int64     `json:"size_bytes"`
	IndexedAt   time.Time `json:"indexed_at"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}
