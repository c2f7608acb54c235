package driven

// Chunker splits document text into overlapping segments.
// Implementations are deterministic: identical input yields identical output.
type Chunker interface {
	// Name returns the policy name for logging and configuration.
	Name() string

	// Chunk splits text. Empty or whitespace-only text yields no chunks.
	Chunk(text string) []string
}
