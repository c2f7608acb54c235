package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memorycache "github.com/custodia-labs/nutrirag/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/nutrirag/internal/adapters/driven/tokenizer/tiktoken"
	memoryvector "github.com/custodia-labs/nutrirag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/nutrirag/internal/core/domain"
	"github.com/custodia-labs/nutrirag/internal/core/ports/driven"
	"github.com/custodia-labs/nutrirag/internal/normalisers"
	"github.com/custodia-labs/nutrirag/internal/postprocessors"
)

const testDims = 32

// mockEmbeddingService embeds text as a hashed bag of words, so texts
// sharing words are close.
type mockEmbeddingService struct {
	mu       sync.Mutex
	calls    int
	failOn   string
	err      error
	pingErr  error
	embedded []string
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.embedded = append(m.embedded, text)
	if m.err != nil || (m.failOn != "" && strings.Contains(text, m.failOn)) {
		return nil, &domain.ProviderError{Provider: "mock", Op: "embed", Err: errors.New("provider down")}
	}
	return bagOfWords(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return testDims }
func (m *mockEmbeddingService) ModelName() string            { return "mock" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.pingErr }
func (m *mockEmbeddingService) Close() error                 { return nil }

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, testDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%testDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / math.Sqrt(norm))
	}
	return vec
}

// failingCache fails every call.
type failingCache struct{}

func (failingCache) Name() string { return "failing" }
func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, &domain.CacheError{Op: "get", Err: errors.New("connection refused")}
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return &domain.CacheError{Op: "set", Err: errors.New("connection refused")}
}
func (failingCache) Delete(context.Context, string) error { return errors.New("connection refused") }
func (failingCache) Ping(context.Context) error           { return errors.New("connection refused") }
func (failingCache) Close() error                         { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *RetrievalService
	embedder *mockEmbeddingService
	index    *memoryvector.Index
	clock    *fakeClock
}

func characterChunking() domain.ChunkingSettings {
	return domain.ChunkingSettings{
		Policy:        domain.ChunkingPolicyCharacter,
		ChunkSize:     500,
		Overlap:       50,
		MinChunkChars: 20,
	}
}

func newTestPipeline(t *testing.T, chunking domain.ChunkingSettings) *postprocessors.Pipeline {
	t.Helper()

	settings := domain.DefaultAppSettings()
	settings.Chunking = chunking

	deps := postprocessors.Deps{}
	if chunking.Policy == domain.ChunkingPolicyToken {
		tok, err := tiktoken.New("cl100k_base")
		require.NoError(t, err)
		deps.Tokenizer = tok
	}

	reg := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(reg, deps)
	names, cfgs := postprocessors.DefaultPipelineConfig(settings)
	pipeline, err := reg.BuildPipeline(names, cfgs)
	require.NoError(t, err)
	return pipeline
}

func newFixture(t *testing.T, opts ...RetrievalOption) *fixture {
	t.Helper()
	return newFixtureWith(t, characterChunking(), domain.RetrievalSettings{}, opts...)
}

func newFixtureWith(
	t *testing.T, chunking domain.ChunkingSettings, settings domain.RetrievalSettings, opts ...RetrievalOption,
) *fixture {
	t.Helper()

	f := &fixture{
		embedder: &mockEmbeddingService{},
		index:    memoryvector.New("nutrition_knowledge", testDims),
		clock:    newFakeClock(),
	}
	opts = append([]RetrievalOption{WithClock(f.clock.Now)}, opts...)
	f.svc = NewRetrievalService(
		f.embedder,
		f.index,
		normalisers.NewDefaultRegistry(),
		newTestPipeline(t, chunking),
		settings,
		opts...,
	)
	return f
}

func withMemoryCache() RetrievalOption {
	return WithResultCache(memorycache.New(100), domain.CacheSettings{
		Backend: domain.CacheBackendMemory,
		TTL:     time.Hour,
		Timeout: time.Second,
	})
}

// seed stores chunks directly in the index.
func (f *fixture) seed(t *testing.T, chunks ...domain.Chunk) {
	t.Helper()
	records := make([]driven.VectorRecord, len(chunks))
	for i, c := range chunks {
		c.Embedding = bagOfWords(c.Content)
		records[i] = driven.RecordFromChunk(c)
	}
	require.NoError(t, f.index.Upsert(context.Background(), records))
}

func chunk(documentID string, pos int, category, text string) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(documentID, pos),
		DocumentID: documentID,
		Content:    text,
		Position:   pos,
		Metadata: domain.Metadata{
			Source:     filepath.Base(documentID),
			Category:   category,
			DocumentID: documentID,
			ChunkIndex: pos,
			SizeBytes:  int64(len(text)),
		},
	}
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func seedCorpus(f *fixture, t *testing.T) {
	f.seed(t,
		chunk("recetas/desayuno_avena.txt", 0, "recetas", "Avena cocida con leche para el desayuno. Preparación: hervir diez minutos."),
		chunk("recetas/cena_pescado.txt", 0, "recetas", "Pescado al horno con verduras para la cena. Macros: 30g proteina."),
		chunk("guias/hidratacion.txt", 0, "guias", "Beber dos litros de agua por dia mejora la hidratacion."),
		chunk("guias/plan_base.txt", 0, "guias", "Plan alimentario base para mantener el peso con actividad moderada."),
	)
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  domain.SearchRequest
	}{
		{"empty query", domain.SearchRequest{Query: "   ", NResults: 5}},
		{"query too long", domain.SearchRequest{Query: strings.Repeat("a", domain.DefaultMaxQueryLength+1), NResults: 5}},
		{"n_results above max", domain.SearchRequest{Query: "avena", NResults: 21}},
		{"negative n_results", domain.SearchRequest{Query: "avena", NResults: -1}},
		{"zero n_results", domain.SearchRequest{Query: "avena"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			resp, err := f.svc.Search(context.Background(), tt.req)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, resp)
			assert.Zero(t, f.embedder.callCount())
		})
	}
}

func TestSearch_RanksByDistance(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)

	resp, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "avena desayuno", NResults: 4})
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, 4, resp.TotalResults)
	assert.False(t, resp.Cached)
	assert.Equal(t, "desayuno_avena.txt", resp.Results[0].Metadata.Source)
	for i := 1; i < len(resp.Results); i++ {
		assert.LessOrEqual(t, resp.Results[i-1].Distance, resp.Results[i].Distance)
	}
	for _, r := range resp.Results {
		assert.InDelta(t, 1-r.Distance, r.Score, 1e-9)
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)

	resp, err := f.svc.Search(context.Background(), domain.SearchRequest{
		Query: "avena desayuno", NResults: 10, CategoryFilter: "guias",
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, "guias", r.Metadata.Category)
	}
}

func TestSearch_CacheMissThenHit(t *testing.T) {
	f := newFixture(t, withMemoryCache())
	seedCorpus(f, t)
	req := domain.SearchRequest{Query: "avena desayuno", NResults: 5, UseCache: true}

	first, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Zero(t, second.QueryTimeSeconds)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, f.embedder.callCount())
}

func TestSearch_CacheKeyIgnoresQueryFormatting(t *testing.T) {
	f := newFixture(t, withMemoryCache())
	seedCorpus(f, t)

	_, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "Avena  Desayuno", NResults: 5, UseCache: true})
	require.NoError(t, err)
	resp, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "  avena desayuno ", NResults: 5, UseCache: true})
	require.NoError(t, err)

	assert.True(t, resp.Cached)
}

func TestSearch_UseCacheFalseBypassesCache(t *testing.T) {
	f := newFixture(t, withMemoryCache())
	seedCorpus(f, t)
	req := domain.SearchRequest{Query: "avena", NResults: 5}

	for range 2 {
		resp, err := f.svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Cached)
	}
	assert.Equal(t, 2, f.embedder.callCount())
}

func TestSearch_EmptyResultsAreNotCached(t *testing.T) {
	f := newFixture(t, withMemoryCache())
	req := domain.SearchRequest{Query: "avena", NResults: 5, UseCache: true}

	for range 2 {
		resp, err := f.svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Cached)
		assert.Empty(t, resp.Results)
		assert.NotNil(t, resp.Results)
	}
}

func TestSearch_StaleEntryIsMiss(t *testing.T) {
	backend := memorycache.New(100)
	f := newFixture(t, WithResultCache(backend, domain.CacheSettings{TTL: time.Minute}))
	seedCorpus(f, t)
	req := domain.SearchRequest{Query: "avena desayuno", NResults: 5, UseCache: true}

	_, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Len())

	// The memory backend runs on the real clock and still holds the entry.
	f.clock.Advance(2 * time.Minute)

	resp, err := f.svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, f.embedder.callCount())
}

func TestSearch_CacheFailureDegradesToMiss(t *testing.T) {
	f := newFixture(t, WithResultCache(failingCache{}, domain.CacheSettings{TTL: time.Hour}))
	seedCorpus(f, t)
	req := domain.SearchRequest{Query: "avena desayuno", NResults: 5, UseCache: true}

	for range 2 {
		resp, err := f.svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Cached)
		assert.NotEmpty(t, resp.Results)
	}
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("down")

	_, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "avena", NResults: 5})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "provider down")
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, []string{"guias", "recetas"}, stats.Categories)
	assert.Equal(t, []string{"cena_pescado.txt", "desayuno_avena.txt", "hidratacion.txt", "plan_base.txt"}, stats.Sources)
	assert.Equal(t, "nutrition_knowledge", stats.Collection)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 4, stats.SampleSize)
}

func TestStats_SampleIsBounded(t *testing.T) {
	f := newFixtureWith(t, characterChunking(), domain.RetrievalSettings{SampleLimit: 2})
	seedCorpus(f, t)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalChunks)
	assert.Equal(t, 2, stats.SampleSize)
}

func TestStats_AfterClear(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)

	require.NoError(t, f.svc.Clear(context.Background()))

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
	assert.Empty(t, stats.Categories)
	assert.Empty(t, stats.Sources)
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)
	f.seed(t, chunk("recetas/cena_pescado.txt", 1, "recetas", "Servir el pescado con limon y arroz integral."))

	docs, err := f.svc.ListDocuments(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 4)
	assert.Equal(t, "guias/hidratacion.txt", docs[0].DocumentID)
	assert.Equal(t, "recetas/cena_pescado.txt", docs[2].DocumentID)
	assert.Equal(t, 2, docs[2].Chunks)
	assert.Equal(t, "cena_pescado.txt", docs[2].Filename)
	assert.Equal(t, "recetas", docs[2].Category)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	seedCorpus(f, t)

	n, err := f.svc.DeleteDocument(context.Background(), "guias/hidratacion.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.DeleteDocument(context.Background(), "guias/hidratacion.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.DeleteDocument(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	count, err := f.index.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestHealth(t *testing.T) {
	t.Run("healthy without cache", func(t *testing.T) {
		f := newFixture(t)

		report := f.svc.Health(context.Background())

		assert.Equal(t, domain.HealthHealthy, report.Status)
		require.Len(t, report.Components, 3)
		assert.Equal(t, "disabled", report.Components[2].Detail)
		assert.Equal(t, f.clock.Now(), report.Timestamp)
	})

	t.Run("unreachable cache degrades", func(t *testing.T) {
		f := newFixture(t, WithResultCache(failingCache{}, domain.CacheSettings{}))

		report := f.svc.Health(context.Background())

		assert.Equal(t, domain.HealthDegraded, report.Status)
		assert.False(t, report.Components[2].Healthy)
		assert.Contains(t, report.Components[2].Detail, "connection refused")
	})

	t.Run("unreachable embedder is unhealthy", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.pingErr = errors.New("no route to host")

		report := f.svc.Health(context.Background())

		assert.Equal(t, domain.HealthUnhealthy, report.Status)
		assert.Equal(t, domain.ComponentEmbedding, report.Components[0].Name)
		assert.False(t, report.Components[0].Healthy)
	})
}
