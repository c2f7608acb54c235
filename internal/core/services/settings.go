package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driving"
	"github.com/custodia-labs/nutrirag/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedBatchSize  = "embedding.batch_size"
	keyEmbedTimeout    = "embedding.timeout_seconds"
	keyEmbedRPS        = "embedding.requests_per_second"
	keyVectorBackend   = "vector.backend"
	keyVectorDSN       = "vector.dsn"
	keyVectorColl      = "vector.collection"
	keyVectorDims      = "vector.dimensions"
	keyCacheBackend    = "cache.backend"
	keyCacheURL        = "cache.url"
	keyCacheTTL        = "cache.ttl_seconds"
	keyCacheMaxEntries = "cache.max_entries"
	keyCacheTimeout    = "cache.timeout_seconds"
	keyChunkPolicy     = "chunking.policy"
	keyChunkSize       = "chunking.chunk_size"
	keyChunkOverlap    = "chunking.overlap"
	keyChunkMinChars   = "chunking.min_chunk_chars"
	keyMaxQueryLength  = "retrieval.max_query_length"
	keyDefaultResults  = "retrieval.default_results"
	keyIngestBatchSize = "retrieval.batch_size"
	keyIndexTimeout    = "retrieval.index_timeout_seconds"
	keySampleLimit     = "retrieval.sample_limit"
	keyRecipeCats      = "retrieval.recipe_categories"
	keyParallelContext = "retrieval.parallel_context"
	keyCorpusRoot      = "corpus.root"
	keyCorpusExclude   = "corpus.exclude"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvEmbeddingProvider = "NUTRIRAG_EMBEDDING_PROVIDER"
	EnvRedisURL          = "REDIS_URL"
	EnvVectorDSN         = "NUTRIRAG_VECTOR_DSN"
	EnvCollectionName    = "COLLECTION_NAME"
	EnvChunkSize         = "CHUNK_SIZE"
	EnvChunkOverlap      = "CHUNK_OVERLAP"
	EnvMaxSearchResults  = "MAX_SEARCH_RESULTS"
)

// EnvLookup reads an environment variable.
type EnvLookup func(key string) (string, bool)

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnvLookup replaces os.LookupEnv.
func WithEnvLookup(lookup EnvLookup) SettingsOption {
	return func(s *SettingsService) {
		s.lookupEnv = lookup
	}
}

// WithEmbeddingValidator enables provider connectivity checks in ValidateEmbeddingConfig.
func WithEmbeddingValidator(v driven.EmbeddingValidator) SettingsOption {
	return func(s *SettingsService) {
		s.validator = v
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
	lookupEnv   EnvLookup
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings, with environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)
	if v, ok := s.env(EnvEmbeddingProvider); ok {
		if p := domain.AIProvider(v); p.IsValid() {
			provider = p
		} else {
			logger.Warn("Ignoring %s=%q: unknown provider", EnvEmbeddingProvider, v)
		}
	}
	model := s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[provider])

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - adapters know their endpoint
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			Timeout:           s.getSeconds(keyEmbedTimeout, defaults.Embedding.Timeout),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		Vector: domain.VectorSettings{
			Backend:    s.getVectorBackend(defaults.Vector.Backend),
			DSN:        s.getString(keyVectorDSN, defaults.Vector.DSN),
			Collection: s.getString(keyVectorColl, defaults.Vector.Collection),
			Dimensions: s.getInt(keyVectorDims, dimensionsFor(model, defaults.Vector.Dimensions)),
		},
		Cache: domain.CacheSettings{
			Backend:    s.getCacheBackend(defaults.Cache.Backend),
			URL:        s.getString(keyCacheURL, defaults.Cache.URL),
			TTL:        s.getSeconds(keyCacheTTL, defaults.Cache.TTL),
			MaxEntries: s.getInt(keyCacheMaxEntries, defaults.Cache.MaxEntries),
			Timeout:    s.getSeconds(keyCacheTimeout, defaults.Cache.Timeout),
		},
		Chunking: domain.ChunkingSettings{
			Policy:        s.getChunkingPolicy(defaults.Chunking.Policy),
			ChunkSize:     s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			Overlap:       s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
			MinChunkChars: s.getInt(keyChunkMinChars, defaults.Chunking.MinChunkChars),
		},
		Retrieval: domain.RetrievalSettings{
			MaxQueryLength:   s.getInt(keyMaxQueryLength, defaults.Retrieval.MaxQueryLength),
			DefaultResults:   s.getInt(keyDefaultResults, defaults.Retrieval.DefaultResults),
			BatchSize:        s.getInt(keyIngestBatchSize, defaults.Retrieval.BatchSize),
			IndexTimeout:     s.getSeconds(keyIndexTimeout, defaults.Retrieval.IndexTimeout),
			SampleLimit:      s.getInt(keySampleLimit, defaults.Retrieval.SampleLimit),
			RecipeCategories: s.getStringSlice(keyRecipeCats, defaults.Retrieval.RecipeCategories),
			ParallelContext:  s.getBool(keyParallelContext, defaults.Retrieval.ParallelContext),
			PerQueryK:        defaults.Retrieval.PerQueryK,
			PoolSize:         defaults.Retrieval.PoolSize,
			FinalK:           defaults.Retrieval.FinalK,
		},
		Corpus: domain.CorpusSettings{
			Root:    s.getString(keyCorpusRoot, defaults.Corpus.Root),
			Exclude: s.getStringSlice(keyCorpusExclude, defaults.Corpus.Exclude),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

// applyEnv overlays environment variables on top of stored settings.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.env(EnvOpenAIAPIKey); ok && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = v
	}
	if v, ok := s.env(EnvRedisURL); ok {
		settings.Cache.URL = v
		if _, stored := s.configStore.Get(keyCacheBackend); !stored {
			settings.Cache.Backend = domain.CacheBackendRedis
		}
	}
	if v, ok := s.env(EnvVectorDSN); ok {
		settings.Vector.DSN = v
	}
	if v, ok := s.env(EnvCollectionName); ok {
		settings.Vector.Collection = v
	}
	s.envInt(EnvChunkSize, &settings.Chunking.ChunkSize)
	s.envInt(EnvChunkOverlap, &settings.Chunking.Overlap)
	s.envInt(EnvMaxSearchResults, &settings.Retrieval.DefaultResults)
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedTimeout, int(settings.Embedding.Timeout / time.Second)},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyVectorBackend, settings.Vector.Backend.String()},
		{keyVectorDSN, settings.Vector.DSN},
		{keyVectorColl, settings.Vector.Collection},
		{keyVectorDims, settings.Vector.Dimensions},
		{keyCacheBackend, settings.Cache.Backend.String()},
		{keyCacheURL, settings.Cache.URL},
		{keyCacheTTL, int(settings.Cache.TTL / time.Second)},
		{keyCacheMaxEntries, settings.Cache.MaxEntries},
		{keyCacheTimeout, int(settings.Cache.Timeout / time.Second)},
		{keyChunkPolicy, string(settings.Chunking.Policy)},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyChunkMinChars, settings.Chunking.MinChunkChars},
		{keyMaxQueryLength, settings.Retrieval.MaxQueryLength},
		{keyDefaultResults, settings.Retrieval.DefaultResults},
		{keyIngestBatchSize, settings.Retrieval.BatchSize},
		{keyIndexTimeout, int(settings.Retrieval.IndexTimeout / time.Second)},
		{keySampleLimit, settings.Retrieval.SampleLimit},
		{keyRecipeCats, settings.Retrieval.RecipeCategories},
		{keyParallelContext, settings.Retrieval.ParallelContext},
		{keyCorpusRoot, settings.Corpus.Root},
		{keyCorpusExclude, settings.Corpus.Exclude},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// An API key from the environment is never written back.
	if settings.Embedding.APIKey != "" {
		if env, ok := s.env(EnvOpenAIAPIKey); !ok || env != settings.Embedding.APIKey {
			if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
				return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
			}
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return &domain.ValidationError{Field: "embedding.provider", Reason: "unknown provider " + strconv.Quote(string(provider))}
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		if _, ok := s.env(EnvOpenAIAPIKey); !ok {
			return &domain.ValidationError{Field: "embedding.api_key", Reason: "required for " + provider.String()}
		}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	// A base URL from a different provider would point at the wrong API.
	settings.Embedding.BaseURL = ""
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Vector.Dimensions = d
	}

	return s.Save(settings)
}

// SetVectorBackend configures the vector index backend.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend, dsn string) error {
	if !backend.IsValid() {
		return &domain.ValidationError{Field: "vector.backend", Reason: "unknown backend " + strconv.Quote(string(backend))}
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Vector.Backend = backend
	settings.Vector.DSN = dsn
	if backend == domain.VectorBackendSQLite && dsn == "" {
		settings.Vector.DSN = domain.DefaultAppSettings().Vector.DSN
	}

	if err := validateVector(settings.Vector); err != nil {
		return err
	}
	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbedding(ctx, settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateSettings checks settings for values no backend can work with.
func ValidateSettings(settings *domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return &domain.ValidationError{Field: "embedding.provider", Reason: "unknown provider"}
	}
	if !settings.Embedding.IsConfigured() {
		return &domain.ValidationError{
			Field:  "embedding.api_key",
			Reason: "required for " + settings.Embedding.Provider.String() + " (set " + EnvOpenAIAPIKey + ")",
		}
	}
	if err := validateVector(settings.Vector); err != nil {
		return err
	}
	if !settings.Cache.Backend.IsValid() {
		return &domain.ValidationError{Field: "cache.backend", Reason: "unknown backend"}
	}

	c := settings.Chunking
	if !c.Policy.IsValid() {
		return &domain.ValidationError{Field: "chunking.policy", Reason: "must be token or character"}
	}
	if c.ChunkSize <= 0 {
		return &domain.ValidationError{Field: "chunking.chunk_size", Reason: "must be > 0"}
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return &domain.ValidationError{Field: "chunking.overlap", Reason: "must be >= 0 and < chunk_size"}
	}

	r := settings.Retrieval
	if r.DefaultResults < domain.MinResults || r.DefaultResults > domain.MaxResults {
		return &domain.ValidationError{Field: "retrieval.default_results", Reason: "must be between 1 and 20"}
	}
	if r.BatchSize <= 0 {
		return &domain.ValidationError{Field: "retrieval.batch_size", Reason: "must be > 0"}
	}
	for _, pattern := range settings.Corpus.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return &domain.ValidationError{Field: "corpus.exclude", Reason: "invalid pattern " + strconv.Quote(pattern)}
		}
	}
	return nil
}

func validateVector(v domain.VectorSettings) error {
	if !v.Backend.IsValid() {
		return &domain.ValidationError{Field: "vector.backend", Reason: "unknown backend"}
	}
	if strings.TrimSpace(v.Collection) == "" {
		return &domain.ValidationError{Field: "vector.collection", Reason: "must not be empty"}
	}
	if v.Backend != domain.VectorBackendMemory && v.DSN == "" {
		return &domain.ValidationError{Field: "vector.dsn", Reason: "required for " + v.Backend.String()}
	}
	return nil
}

func dimensionsFor(model string, defaultVal int) int {
	if d, ok := domain.EmbeddingDimensions()[model]; ok {
		return d
	}
	return defaultVal
}

// Helper methods for reading config with defaults.

func (s *SettingsService) env(key string) (string, bool) {
	v, ok := s.lookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (s *SettingsService) envInt(key string, dst *int) {
	v, ok := s.env(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Ignoring %s=%q: not an integer", key, v)
		return
	}
	*dst = n
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetFloat(key) * float64(time.Second))
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if val == nil {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	backend := domain.CacheBackend(s.configStore.GetString(keyCacheBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getChunkingPolicy(defaultVal domain.ChunkingPolicy) domain.ChunkingPolicy {
	policy := domain.ChunkingPolicy(s.configStore.GetString(keyChunkPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}
