package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite stores vectors in an embedded SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant uses a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendPgvector uses PostgreSQL with the pgvector extension.
	VectorBackendPgvector VectorBackend = "pgvector"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendPgvector:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// CacheBackend identifies a result cache implementation.
type CacheBackend string

// Available cache backends.
const (
	// CacheBackendNone disables the result cache.
	CacheBackendNone CacheBackend = "none"

	// CacheBackendMemory keeps entries in process memory.
	CacheBackendMemory CacheBackend = "memory"

	// CacheBackendRedis stores entries in Redis.
	CacheBackendRedis CacheBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// ChunkingPolicy selects how chunk sizes are measured.
type ChunkingPolicy string

// Available chunking policies.
const (
	// ChunkingPolicyToken measures chunk_size and overlap in model tokens.
	ChunkingPolicyToken ChunkingPolicy = "token"

	// ChunkingPolicyCharacter measures them in characters with sentence snapping.
	ChunkingPolicyCharacter ChunkingPolicy = "character"
)

// IsValid returns true if the policy is recognised.
func (p ChunkingPolicy) IsValid() bool {
	return p == ChunkingPolicyToken || p == ChunkingPolicyCharacter
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize bounds the number of texts per provider request.
	BatchSize int

	// Timeout bounds every provider request.
	Timeout time.Duration

	// RequestsPerSecond limits provider calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	// Backend selects the index implementation.
	Backend VectorBackend

	// DSN is the backend location: a file path for sqlite,
	// a base URL for qdrant, a connection string for pgvector.
	DSN string

	// Collection is the collection (or table) name.
	Collection string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// CacheSettings holds result cache configuration.
type CacheSettings struct {
	// Backend selects the cache implementation.
	Backend CacheBackend

	// URL is the Redis connection URL.
	URL string

	// TTL is how long an entry may be served.
	TTL time.Duration

	// MaxEntries bounds the memory backend. Zero means unbounded.
	MaxEntries int

	// Timeout bounds every cache backend call.
	Timeout time.Duration
}

// Enabled reports whether a cache backend is configured.
func (c CacheSettings) Enabled() bool {
	return c.Backend != CacheBackendNone && c.Backend != ""
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	// Policy selects token or character chunking.
	Policy ChunkingPolicy

	// ChunkSize is the nominal chunk length in policy units.
	ChunkSize int

	// Overlap is the number of units shared by adjacent chunks.
	Overlap int

	// MinChunkChars drops chunks whose trimmed length is below it.
	MinChunkChars int
}

// RetrievalSettings holds orchestrator configuration.
type RetrievalSettings struct {
	// MaxQueryLength bounds search queries, in characters.
	MaxQueryLength int

	// DefaultResults is used when a search omits n_results.
	DefaultResults int

	// BatchSize is the number of chunks per index upsert.
	BatchSize int

	// IndexTimeout bounds every vector index call.
	IndexTimeout time.Duration

	// SampleLimit is the number of chunks inspected by stats.
	SampleLimit int

	// RecipeCategories are the categories that trigger recipe metadata.
	RecipeCategories []string

	// ParallelContext runs context sub-queries concurrently.
	ParallelContext bool

	// PerQueryK is the number of results per context sub-query.
	PerQueryK int

	// PoolSize bounds the deduplicated selection pool.
	PoolSize int

	// FinalK is the number of excerpts joined into the context.
	FinalK int
}

// CorpusSettings holds document corpus configuration.
type CorpusSettings struct {
	// Root is the corpus directory walked by ingest.
	Root string

	// Exclude lists glob patterns ("borradores/**", "**/*_old.txt")
	// skipped by ingest.
	Exclude []string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	Vector    VectorSettings
	Cache     CacheSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Corpus    CorpusSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The embedding API key is left empty and must come from config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     DefaultEmbeddingModels()[AIProviderOpenAI],
			BatchSize: 100,
			Timeout:   30 * time.Second,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendSQLite,
			DSN:        "nutrirag.db",
			Collection: "nutrition_knowledge",
			Dimensions: 1536, // text-embedding-3-small
		},
		Cache: CacheSettings{
			Backend:    CacheBackendMemory,
			URL:        "redis://localhost:6379",
			TTL:        time.Hour,
			MaxEntries: 1000,
			Timeout:    2 * time.Second,
		},
		Chunking: ChunkingSettings{
			Policy:        ChunkingPolicyToken,
			ChunkSize:     500,
			Overlap:       50,
			MinChunkChars: 20,
		},
		Retrieval: RetrievalSettings{
			MaxQueryLength:   DefaultMaxQueryLength,
			DefaultResults:   DefaultResults,
			BatchSize:        100,
			IndexTimeout:     10 * time.Second,
			SampleLimit:      100,
			RecipeCategories: []string{"recetas", "recipes"},
			PerQueryK:        3,
			PoolSize:         10,
			FinalK:           5,
		},
		Corpus: CorpusSettings{
			Root: "documents",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
