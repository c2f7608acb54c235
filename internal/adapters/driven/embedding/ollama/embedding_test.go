package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func fakeOllama(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			calls.Add(1)
			var req embedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			out := make([][]float64, len(req.Input))
			for i, text := range req.Input {
				out[i] = []float64{float64(len(text)), 0.5}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultBatchSize, s.batchSize)
	assert.NoError(t, s.Close())
}

func TestEmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOllama(t, &calls)
	defer srv.Close()

	s := NewEmbeddingService(Config{BaseURL: srv.URL, BatchSize: 2})
	got, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []float32{1, 0.5}, got[0])
	assert.Equal(t, []float32{3, 0.5}, got[2])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOllama(t, &calls)
	defer srv.Close()

	got, err := NewEmbeddingService(Config{BaseURL: srv.URL}).Embed(context.Background(), "cena")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0.5}, got)
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	_, err := NewEmbeddingService(Config{BaseURL: srv.URL}).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewEmbeddingService(Config{BaseURL: srv.URL}).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbed_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewEmbeddingService(Config{BaseURL: url}).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOllama(t, &calls)
	defer srv.Close()

	assert.NoError(t, NewEmbeddingService(Config{BaseURL: srv.URL}).Ping(context.Background()))

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()
	assert.ErrorIs(t, NewEmbeddingService(Config{BaseURL: missing.URL}).Ping(context.Background()), domain.ErrEmbeddingUnavailable)
}
