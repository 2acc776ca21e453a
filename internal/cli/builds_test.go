package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stef/internal/store"
)

func TestBuilds_ListsCachedBuilds(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "stef.db")

	_, _, err := execute(t, "compile", ordersSchema, "-o", filepath.Join(dir, "orders.json"), "--cache", cache)
	require.NoError(t, err)
	_, _, err = execute(t, "gen", ordersSchema, "-o", filepath.Join(dir, "orders.go"), "--cache", cache)
	require.NoError(t, err)

	out, _, err := execute(t, "--format", "json", "builds", "--cache", cache)
	require.NoError(t, err)

	var entries []BuildEntry
	decodeResponse(t, out, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, int64(2), entries[1].Seq)
	for _, e := range entries {
		assert.Equal(t, "orders", e.Schema)
		assert.Equal(t, []string{"go", "ir"}, e.Targets)
	}
	assert.Equal(t, entries[0].Hash, entries[1].Hash)

	out, _, err = execute(t, "builds", "--cache", cache)
	require.NoError(t, err)
	assert.Contains(t, out, entries[0].ID)
	assert.Contains(t, out, entries[0].Hash[:12])
}

func TestBuilds_Empty(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "stef.db")
	st, err := store.Open(cache)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "builds", "--cache", cache)
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded.")
}

func TestBuilds_MissingCache(t *testing.T) {
	_, _, err := execute(t, "builds", "--cache", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeCache)
}
