package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "file is not created until saved")
}

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "nutrirag.toml")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestConfigStore_LoadsNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "ollama"
batch_size = 32
requests_per_second = 2.5

[retrieval]
recipe_categories = ["recetas", "postres"]
parallel_context = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("embedding.provider"))
	assert.Equal(t, 32, store.GetInt("embedding.batch_size"))
	assert.InDelta(t, 2.5, store.GetFloat("embedding.requests_per_second"), 1e-9)
	assert.InDelta(t, 32, store.GetFloat("embedding.batch_size"), 1e-9)
	assert.Equal(t, []string{"recetas", "postres"}, store.GetStringSlice("retrieval.recipe_categories"))
	assert.True(t, store.GetBool("retrieval.parallel_context"))
}

func TestConfigStore_TypedGettersOnMismatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "text"))

	assert.Zero(t, store.GetInt("k"))
	assert.Zero(t, store.GetFloat("k"))
	assert.False(t, store.GetBool("k"))
	assert.Nil(t, store.GetStringSlice("k"))
	assert.Empty(t, store.GetString("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SaveWritesNestedTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("vector.backend", "qdrant"))
	require.NoError(t, store.Set("vector.dsn", "http://localhost:6333"))
	require.NoError(t, store.Set("corpus.root", "docs"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[vector]")
	assert.False(t, strings.Contains(string(data), `"vector.backend"`))
}

func TestConfigStore_SaveReload_PreservesData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("cache.backend", "redis"))
	require.NoError(t, store.Set("cache.ttl_seconds", 600))
	require.NoError(t, store.Set("retrieval.recipe_categories", []string{"recetas"}))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "redis", reloaded.GetString("cache.backend"))
	assert.Equal(t, 600, reloaded.GetInt("cache.ttl_seconds"))
	assert.Equal(t, []string{"recetas"}, reloaded.GetStringSlice("retrieval.recipe_categories"))
}

func TestConfigStore_SaveConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("vector", "sqlite"))

	assert.Error(t, store.Set("vector.dsn", "x"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("retrieval.default_results", 5)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.default_results")
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, store.GetInt("retrieval.default_results"))
}

func TestUnflattenMap(t *testing.T) {
	got, err := unflattenMap(map[string]any{"a.b.c": 1, "a.d": "x", "e": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}, "d": "x"},
		"e": true,
	}, got)
}
