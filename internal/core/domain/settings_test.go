package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "empty string is invalid", provider: AIProvider(""), expected: false},
		{name: "anthropic is not an embedding provider", provider: AIProvider("anthropic"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"no provider", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestBackends_IsValid(t *testing.T) {
	for _, b := range []VectorBackend{VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendPgvector} {
		assert.True(t, b.IsValid(), b.String())
	}
	assert.False(t, VectorBackend("chroma").IsValid())

	for _, b := range []CacheBackend{CacheBackendNone, CacheBackendMemory, CacheBackendRedis} {
		assert.True(t, b.IsValid(), b.String())
	}
	assert.False(t, CacheBackend("memcached").IsValid())

	assert.True(t, ChunkingPolicyToken.IsValid())
	assert.True(t, ChunkingPolicyCharacter.IsValid())
	assert.False(t, ChunkingPolicy("words").IsValid())
}

func TestCacheSettings_Enabled(t *testing.T) {
	assert.True(t, CacheSettings{Backend: CacheBackendRedis}.Enabled())
	assert.False(t, CacheSettings{Backend: CacheBackendNone}.Enabled())
	assert.False(t, CacheSettings{}.Enabled())
}

// TestDefaultAppSettings tests the default configuration values
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, AIProviderOpenAI, s.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", s.Embedding.Model)
	assert.Equal(t, 100, s.Embedding.BatchSize)
	assert.Empty(t, s.Embedding.APIKey)

	assert.Equal(t, VectorBackendSQLite, s.Vector.Backend)
	assert.Equal(t, "nutrition_knowledge", s.Vector.Collection)
	assert.Equal(t, EmbeddingDimensions()[s.Embedding.Model], s.Vector.Dimensions)

	assert.Equal(t, time.Hour, s.Cache.TTL)
	assert.True(t, s.Cache.Enabled())

	assert.Equal(t, ChunkingPolicyToken, s.Chunking.Policy)
	assert.Equal(t, 500, s.Chunking.ChunkSize)
	assert.Equal(t, 50, s.Chunking.Overlap)
	assert.Equal(t, 20, s.Chunking.MinChunkChars)

	require.NotEmpty(t, s.Retrieval.RecipeCategories)
	assert.Contains(t, s.Retrieval.RecipeCategories, "recetas")
	assert.Equal(t, 500, s.Retrieval.MaxQueryLength)
	assert.Equal(t, 100, s.Retrieval.BatchSize)
	assert.Equal(t, 100, s.Retrieval.SampleLimit)
	assert.Equal(t, 3, s.Retrieval.PerQueryK)
	assert.Equal(t, 10, s.Retrieval.PoolSize)
	assert.Equal(t, 5, s.Retrieval.FinalK)
	assert.False(t, s.Retrieval.ParallelContext)
}

func TestDefaultEmbeddingModels(t *testing.T) {
	models := DefaultEmbeddingModels()
	for _, p := range AllEmbeddingProviders() {
		assert.NotEmpty(t, models[p], p.String())
	}
}
