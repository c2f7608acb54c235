package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func newTestServer(t *testing.T, retrieval *mockRetrievalService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Retrieval: retrieval})
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mock := &mockRetrievalService{
			searchResp: &domain.SearchResponse{
				Results: []domain.SearchResult{
					domain.NewSearchResult("Avena con fruta y yogur", domain.Metadata{
						Source:         "desayuno_avena.txt",
						Category:       "recetas",
						DocumentID:     "recetas/desayuno_avena.txt",
						ChunkIndex:     2,
						RecipeMetadata: &domain.RecipeMetadata{
							Type:       domain.RecipeType,
							MealType:   "desayuno",
							Difficulty: "easy",
							PrepTime:   "10 minutos",
							Servings:   "2",
						},
					}, 0.25),
				},
				Cached:           true,
				QueryTimeSeconds: 0,
				TotalResults:     1,
			},
		}
		server := newTestServer(t, mock)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "desayuno", NResults: 3, Category: "recetas"})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "Avena con fruta y yogur", output.Results[0].Text)
		assert.Equal(t, "recetas/desayuno_avena.txt", output.Results[0].DocumentID)
		assert.Equal(t, "desayuno_avena.txt", output.Results[0].Source)
		assert.Equal(t, "desayuno", output.Results[0].MealType)
		assert.InDelta(t, 0.75, output.Results[0].Score, 1e-9)
		assert.InDelta(t, 0.25, output.Results[0].Distance, 1e-9)
		assert.True(t, output.Cached)

		meta := output.Results[0].Metadata
		assert.Equal(t, 2, meta[domain.MetaChunkIndex])
		assert.Equal(t, "easy", meta[domain.MetaDifficulty])
		assert.Equal(t, "10 minutos", meta[domain.MetaPrepTime])
		assert.Equal(t, "2", meta[domain.MetaServings])
		assert.Equal(t, "recetas", meta[domain.MetaCategory])

		assert.Equal(t, "desayuno", mock.lastSearch.Query)
		assert.Equal(t, 3, mock.lastSearch.NResults)
		assert.Equal(t, "recetas", mock.lastSearch.CategoryFilter)
	})

	t.Run("cache is used by default", func(t *testing.T) {
		mock := &mockRetrievalService{}
		server := newTestServer(t, mock)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "agua"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.True(t, mock.lastSearch.UseCache)
	})

	t.Run("omitted n_results uses the built-in default", func(t *testing.T) {
		mock := &mockRetrievalService{}
		server := newTestServer(t, mock)

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "agua"})

		require.NoError(t, err)
		assert.Equal(t, domain.DefaultResults, mock.lastSearch.NResults)
	})

	t.Run("omitted n_results uses the configured default", func(t *testing.T) {
		mock := &mockRetrievalService{}
		server, err := NewServer(&Ports{Retrieval: mock, DefaultResults: 7})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "agua"})

		require.NoError(t, err)
		assert.Equal(t, 7, mock.lastSearch.NResults)
	})

	t.Run("explicit n_results is passed through", func(t *testing.T) {
		mock := &mockRetrievalService{}
		server, err := NewServer(&Ports{Retrieval: mock, DefaultResults: 7})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "agua", NResults: 25})

		require.NoError(t, err)
		assert.Equal(t, 25, mock.lastSearch.NResults)
	})

	t.Run("cache can be bypassed", func(t *testing.T) {
		mock := &mockRetrievalService{}
		server := newTestServer(t, mock)
		useCache := false

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "agua", UseCache: &useCache})

		require.NoError(t, err)
		assert.False(t, mock.lastSearch.UseCache)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{err: domain.ErrEmbeddingUnavailable})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "agua"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestServer_handleAssembleContext(t *testing.T) {
	ctx := context.Background()

	t.Run("maps request and response", func(t *testing.T) {
		mock := &mockRetrievalService{
			contextResp: &domain.ContextResponse{
				Context:         "plan uno" + domain.ContextSeparator + "plan dos",
				Recommendations: []string{"Preparación: mezclar..."},
				RelevantSources: []string{"plan.txt"},
				SubQueries:      []string{"plan alimentario bajar peso alto"},
			},
		}
		server := newTestServer(t, mock)

		_, output, err := server.handleAssembleContext(ctx, nil, ContextInput{
			PatientData:     map[string]string{"objective": "bajar peso", "activity_level": "alto"},
			MotorType:       3,
			SpecificRequest: "cena",
		})

		require.NoError(t, err)
		assert.Contains(t, output.Context, "plan dos")
		assert.Equal(t, []string{"plan.txt"}, output.RelevantSources)
		assert.Len(t, output.Recommendations, 1)
		assert.Equal(t, domain.MotorSubstitution, mock.lastContext.MotorType)
		assert.Equal(t, "cena", mock.lastContext.SpecificRequest)
		assert.Equal(t, "bajar peso", mock.lastContext.Patient(domain.PatientObjective))
	})

	t.Run("empty lists are not null", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{})

		_, output, err := server.handleAssembleContext(ctx, nil, ContextInput{MotorType: 1})

		require.NoError(t, err)
		assert.NotNil(t, output.Recommendations)
		assert.NotNil(t, output.RelevantSources)
		assert.NotNil(t, output.SubQueries)
	})

	t.Run("returns validation error", func(t *testing.T) {
		verr := &domain.ValidationError{Field: "motor_type", Reason: "must be 1, 2 or 3"}
		server := newTestServer(t, &mockRetrievalService{err: verr})

		_, _, err := server.handleAssembleContext(ctx, nil, ContextInput{MotorType: 7})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleStats(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stats", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{
			stats: &domain.Stats{
				TotalChunks: 42,
				Categories:  []string{"guias", "recetas"},
				Sources:     []string{"a.txt"},
				Collection:  "nutrition_knowledge",
				Backend:     "sqlite",
			},
		})

		_, output, err := server.handleStats(ctx, nil, StatsInput{})

		require.NoError(t, err)
		assert.Equal(t, 42, output.TotalChunks)
		assert.Equal(t, []string{"guias", "recetas"}, output.Categories)
		assert.Equal(t, "nutrition_knowledge", output.Collection)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(t, &mockRetrievalService{err: errors.New("index down")})

		_, _, err := server.handleStats(ctx, nil, StatsInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index down")
	})
}
