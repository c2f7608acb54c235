package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"a": "x", "n": 3, "f": 1.5, "b": true, "s": []any{"p", 1, "q"}}
	store := NewConfigStore(seed)
	seed["a"] = "mutated"

	assert.Equal(t, "x", store.GetString("a"))
	assert.Equal(t, 3, store.GetInt("n"))
	assert.InDelta(t, 1.5, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 3, store.GetFloat("n"), 1e-9)
	assert.True(t, store.GetBool("b"))
	assert.Equal(t, []string{"p", "q"}, store.GetStringSlice("s"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetAndSave(t *testing.T) {
	store := NewConfigStore(nil)

	require.NoError(t, store.Set("k", int64(7)))
	require.NoError(t, store.Save())
	require.NoError(t, store.Load())

	assert.Equal(t, 7, store.GetInt("k"))
	assert.Equal(t, 2, store.Saves())

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Zero(t, store.GetInt("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}
