package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func TestStatsCmd_PrintsStats(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.stats = &domain.Stats{
		TotalChunks: 250,
		Categories:  []string{"guias", "recetas"},
		Sources:     []string{"agua.txt", "avena.txt"},
		Collection:  "nutrition_knowledge",
		Backend:     "sqlite",
		SampleSize:  100,
	}

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Collection:   nutrition_knowledge (sqlite)")
	assert.Contains(t, out, "Total chunks: 250")
	assert.Contains(t, out, "Categories:   guias, recetas")
	assert.Contains(t, out, "sample of 100 chunks")
}

func TestStatsCmd_EmptyCollection(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Categories:   none")
	assert.NotContains(t, out, "sample of")
}

func TestStatsCmd_JSONOutput(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.stats = &domain.Stats{TotalChunks: 4, Collection: "c"}

	out, err := execute(t, "stats", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"total_chunks": 4`)
	assert.Contains(t, out, `"collection_name": "c"`)
}

func TestStatsCmd_Error(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.err = errors.New("index down")

	_, err := execute(t, "stats")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading stats")
}
