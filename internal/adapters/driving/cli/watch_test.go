package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nutrirag/internal/core/domain"
)

func TestWatchCmd_Flags(t *testing.T) {
	debounce := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounce)
	assert.Equal(t, "2s", debounce.DefValue)

	initial := watchCmd.Flags().Lookup("initial")
	require.NotNil(t, initial)
	assert.Equal(t, "true", initial.DefValue)
}

func TestWatchCmd_ReindexesOnChange(t *testing.T) {
	retrieval, _, cleanup := setupTestServices()
	defer cleanup()

	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, done := runInBackground(t, ctx, watchCmd, "watch", "--debounce", "50ms", root)

	// Let the watcher start and the initial ingest finish.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "agua.txt"), []byte("beber agua"), 0644))
	time.Sleep(500 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.GreaterOrEqual(t, retrieval.ingestCalls, 2)
	assert.Equal(t, root, retrieval.ingestRoot)
	assert.Equal(t, domain.IngestModeIncremental, retrieval.ingestOpts.Mode)
	assert.Contains(t, out.String(), "Watching "+root)
	assert.Contains(t, out.String(), "changes detected")
}

func TestWatchCmd_MissingRoot(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	watchCmd.SetContext(context.Background())
	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
}

// runInBackground executes args on a goroutine with ctx. The output buffer
// must only be read after done has delivered.
func runInBackground(
	t *testing.T, ctx context.Context, target *cobra.Command, args ...string,
) (*bytes.Buffer, <-chan error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	target.SetContext(ctx)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
		rootCmd.SetContext(context.Background())
		target.SetContext(context.Background())
	})

	done := make(chan error, 1)
	go func() {
		done <- rootCmd.ExecuteContext(ctx)
	}()
	return buf, done
}
