package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func TestIngestCmd_Flags(t *testing.T) {
	mode := ingestCmd.Flags().Lookup("mode")
	require.NotNil(t, mode)
	assert.Equal(t, "full", mode.DefValue)
	assert.Equal(t, "m", mode.Shorthand)

	batch := ingestCmd.Flags().Lookup("batch-size")
	require.NotNil(t, batch)
	assert.Equal(t, "0", batch.DefValue)
}

func TestIngestCmd_UsesArgument(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", "/srv/corpus")

	require.NoError(t, err)
	assert.Equal(t, "/srv/corpus", retrieval.ingestRoot)
	assert.Equal(t, domain.IngestModeFull, retrieval.ingestOpts.Mode)
	assert.Equal(t, 0, retrieval.ingestOpts.BatchSize)
}

func TestIngestCmd_DefaultsToConfiguredRoot(t *testing.T) {
	retrieval, settings, cleanup := setupTestServices()
	defer cleanup()
	settings.settings.Corpus.Root = "/data/nutricion"

	_, err := execute(t, "ingest")

	require.NoError(t, err)
	assert.Equal(t, "/data/nutricion", retrieval.ingestRoot)
}

func TestIngestCmd_ModeAndBatchSize(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ingest", "--mode", "incremental", "--batch-size", "25", "docs")

	require.NoError(t, err)
	assert.Equal(t, domain.IngestModeIncremental, retrieval.ingestOpts.Mode)
	assert.Equal(t, 25, retrieval.ingestOpts.BatchSize)
}

func TestIngestCmd_Exclude(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		retrieval, settings, cleanup := setupTestServices()
		defer cleanup()
		settings.settings.Corpus.Exclude = []string{"viejo/**"}

		_, err := execute(t, "ingest", "--exclude", "borradores/**,**/*_old.txt", "docs")

		require.NoError(t, err)
		assert.Equal(t, []string{"borradores/**", "**/*_old.txt"}, retrieval.ingestOpts.Exclude)
	})

	t.Run("falls back to settings", func(t *testing.T) {
		retrieval, settings, cleanup := setupTestServices()
		defer cleanup()
		settings.settings.Corpus.Exclude = []string{"viejo/**"}

		_, err := execute(t, "ingest", "docs")

		require.NoError(t, err)
		assert.Equal(t, []string{"viejo/**"}, retrieval.ingestOpts.Exclude)
	})
}

func TestIngestCmd_PrintsReport(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.report = &domain.IngestReport{
		Mode:             domain.IngestModeIncremental,
		DocumentsIndexed: 3,
		DocumentsRemoved: 1,
		ChunksIndexed:    12,
		Batches:          2,
		Duration:         1500 * time.Millisecond,
		Skipped: []domain.SkippedFile{
			{Path: "guias/notas.pdf", Reason: "unsupported file type"},
		},
	}

	out, err := execute(t, "ingest", "docs")

	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 documents (12 chunks, 2 batches) in 1.5s")
	assert.Contains(t, out, "Removed 1 documents no longer on disk")
	assert.Contains(t, out, "Skipped 1 files:")
	assert.Contains(t, out, "guias/notas.pdf: unsupported file type")
}

func TestIngestCmd_JSONOutput(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.report = &domain.IngestReport{RunID: "run-1", DocumentsIndexed: 2}

	out, err := execute(t, "ingest", "--json", "docs")

	require.NoError(t, err)
	assert.NotContains(t, out, "Indexing")
	assert.Contains(t, out, `"run_id": "run-1"`)
	assert.Contains(t, out, `"documents_indexed": 2`)
}

func TestIngestCmd_Error(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.err = domain.ErrIngestInProgress

	_, err := execute(t, "ingest", "docs")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
}

func TestIngestCmd_SettingsError(t *testing.T) {
	_, settings, cleanup := setupTestServices()
	defer cleanup()
	settings.err = errors.New("config unreadable")

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading settings")
}
