package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
)

func TestCompile_Stdout(t *testing.T) {
	out, _, err := execute(t, "compile", ordersSchema)
	require.NoError(t, err)

	schema, err := compiler.LoadSchema(ordersSchema)
	require.NoError(t, err)
	want, err := ir.MarshalCanonical(ir.ToTree(schema, ir.TreeOptions{}))
	require.NoError(t, err)

	assert.Equal(t, string(want), strings.TrimSuffix(out, "\n"))
	assert.NotContains(t, out, `"span"`)
}

func TestCompile_Spans(t *testing.T) {
	out, _, err := execute(t, "compile", "--spans", ordersSchema)
	require.NoError(t, err)
	assert.Contains(t, out, `"span":[`)
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", ordersSchema)
	require.NoError(t, err)

	var data struct {
		Result CompilationResult `json:"result"`
		IR     map[string]any    `json:"ir"`
	}
	resp := decodeResponse(t, out, &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "orders", data.Result.Schema)
	assert.Equal(t, 2, data.Result.Definitions)
	assert.Len(t, data.Result.Hash, 64)
	assert.False(t, data.Result.Cached)
	assert.Equal(t, "orders", data.IR["name"])
}

func TestCompile_OutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "orders.ir.json")

	out, _, err := execute(t, "compile", ordersSchema, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled orders (2 definitions)")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))
	assert.Equal(t, "orders", tree["name"])
	assert.Len(t, tree["definitions"], 2)
}

func TestCompile_CacheHit(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "cache", "stef.db")
	args := []string{"--format", "json", "compile", ordersSchema, "--cache", cache}

	var first, second struct {
		Result CompilationResult `json:"result"`
		IR     json.RawMessage   `json:"ir"`
	}
	out, _, err := execute(t, args...)
	require.NoError(t, err)
	decodeResponse(t, out, &first)
	assert.False(t, first.Result.Cached)

	out, _, err = execute(t, args...)
	require.NoError(t, err)
	decodeResponse(t, out, &second)
	assert.True(t, second.Result.Cached)
	assert.JSONEq(t, string(first.IR), string(second.IR))
}

func TestCompile_InvalidSchema(t *testing.T) {
	out, _, err := execute(t, "compile", invalidSchema)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]")
	assert.Contains(t, out, "duplicate field id 1")
}

func TestCompile_DirectoryWithSeveralSchemas(t *testing.T) {
	out, _, err := execute(t, "compile", schemasDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBadInput)
}

func TestCompile_MissingArgument(t *testing.T) {
	_, _, err := execute(t, "compile")
	require.Error(t, err)
}
