package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGen_SingleSchema(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model", "orders_gen.go")

	out, _, err := execute(t, "gen", ordersSchema, "-o", output, "--package", "model")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated "+output+" from orders")

	src, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(src), "DO NOT EDIT")
	assert.Contains(t, string(src), "package model")
	assert.Contains(t, string(src), "type Order struct")
	assert.Contains(t, string(src), `"github.com/roach88/stef/wire"`)
}

func TestGen_Stdout(t *testing.T) {
	out, _, err := execute(t, "gen", ordersSchema, "-o", "-", "--wire-import", "example.com/rt/wirecodec")
	require.NoError(t, err)
	assert.Contains(t, out, "package orders")
	assert.Contains(t, out, `wire "example.com/rt/wirecodec"`)
}

func TestGen_SeveralSchemas(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "--format", "json", "gen", schemasDir, "-o", filepath.Join(dir, "stef_gen.go"))
	require.NoError(t, err)

	var result GenResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Files, 2)
	assert.Equal(t, filepath.Join(dir, "inventory_stef.go"), result.Files[0].Path)
	assert.Equal(t, filepath.Join(dir, "orders_stef.go"), result.Files[1].Path)
	for _, f := range result.Files {
		assert.FileExists(t, f.Path)
		assert.Positive(t, f.Bytes)
	}

	_, _, err = execute(t, "gen", schemasDir, "-o", "-")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGen_Config(t *testing.T) {
	dir := t.TempDir()
	schema, err := filepath.Abs(ordersSchema)
	require.NoError(t, err)
	config := filepath.Join(dir, "stef.yaml")
	require.NoError(t, os.WriteFile(config, []byte("package: ordersv1\noutput: gen/orders.go\nschemas:\n  - "+schema+"\n"), 0o644))

	_, _, err = execute(t, "gen", "--config", config)
	require.NoError(t, err)
	src, err := os.ReadFile(filepath.Join(dir, "gen", "orders.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package ordersv1")

	override := filepath.Join(dir, "override.go")
	_, _, err = execute(t, "gen", "--config", config, "--package", "flagged", "-o", override)
	require.NoError(t, err)
	src, err = os.ReadFile(override)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package flagged", "flags take precedence over the config file")
}

func TestGen_Cache(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "stef.db")
	output := filepath.Join(dir, "orders.go")
	args := []string{"--format", "json", "gen", ordersSchema, "-o", output, "--cache", cache}

	var first, second GenResult
	out, _, err := execute(t, args...)
	require.NoError(t, err)
	decodeResponse(t, out, &first)
	out, _, err = execute(t, args...)
	require.NoError(t, err)
	decodeResponse(t, out, &second)

	require.Len(t, second.Files, 1)
	assert.False(t, first.Files[0].Cached)
	assert.True(t, second.Files[0].Cached)
	assert.Equal(t, first.Files[0].Bytes, second.Files[0].Bytes)

	out, _, err = execute(t, "--format", "json", "gen", ordersSchema, "-o", output, "--cache", cache, "--package", "other")
	require.NoError(t, err)
	var third GenResult
	decodeResponse(t, out, &third)
	assert.False(t, third.Files[0].Cached, "a different package is a different artifact")
}

func TestGen_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
		exit int
	}{
		{"no schemas", []string{"gen"}, ErrCodeConfig, ExitCommandError},
		{"bad package", []string{"gen", ordersSchema, "--package", "1bad"}, ErrCodeConfig, ExitCommandError},
		{"missing config", []string{"gen", "--config", "testdata/none.yaml"}, ErrCodeConfig, ExitCommandError},
		{"invalid schema", []string{"gen", invalidSchema, "-o", "-"}, "E201", ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json"}, tt.args...)
			out, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.exit, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "orders_stef.go", outputName("orders"))
	assert.Equal(t, "acme_orders_v1_stef.go", outputName("acme-orders.v1"))
}
