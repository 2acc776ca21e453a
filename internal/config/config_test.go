package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stef/internal/gogen"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "stef.yaml", `
package: model
output: gen/model.go
schemas:
  - schemas/orders.cue
  - /abs/shared.cue
cache: .stef/cache.db
foreign:
  time.Instant:
    import: example.com/timex
    type: timex.Instant
    codec: timex.InstantCodec
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "model", cfg.Package)
	assert.Equal(t, filepath.Join(dir, "gen/model.go"), cfg.Output)
	assert.Equal(t, []string{filepath.Join(dir, "schemas/orders.cue"), "/abs/shared.cue"}, cfg.Schemas)
	assert.Equal(t, filepath.Join(dir, ".stef/cache.db"), cfg.Cache)
	assert.Equal(t, Foreign{Import: "example.com/timex", Type: "timex.Instant", Codec: "timex.InstantCodec"}, cfg.Foreign["time.Instant"])
}

func TestLoadYAMLDefaults(t *testing.T) {
	path := writeFile(t, "stef.yml", "schemas: [a.cue]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultOutput), cfg.Output)
	assert.Empty(t, cfg.Package)
	assert.Empty(t, cfg.Cache, "caching is off unless configured")
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "stef.yaml", "schemas: [a.cue]\npackge: typo\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packge")
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "stef.toml", `
package = "model"
schemas = ["orders.cue"]
wire_import = "example.com/rt"

[foreign."time.Instant"]
import = "example.com/timex"
type = "timex.Instant"
codec = "timex.InstantCodec"
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "model", cfg.Package)
	assert.Equal(t, "example.com/rt", cfg.WireImport)
	assert.Equal(t, []string{filepath.Join(dir, "orders.cue")}, cfg.Schemas)
	assert.Equal(t, filepath.Join(dir, DefaultOutput), cfg.Output, "unset keys keep their defaults")
	assert.Equal(t, "timex.Instant", cfg.Foreign["time.Instant"].Type)
}

func TestLoadTOMLRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "stef.toml", "schemas = [\"a.cue\"]\nouptut = \"x.go\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys: ouptut")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unsupported extension", "stef.json", "{}", "unsupported file type"},
		{"missing schemas", "stef.yaml", "package: model\n", "schemas list is required"},
		{"bad package", "stef.yaml", "package: 1model\nschemas: [a.cue]\n", "not a Go identifier"},
		{"incomplete foreign", "stef.yaml", "schemas: [a.cue]\nforeign:\n  x.Y:\n    type: Y\n", "needs both type and codec"},
		{"malformed yaml", "stef.yaml", "schemas: [a.cue\n", "parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenOptions(t *testing.T) {
	cfg := Config{
		Package:    "model",
		WireImport: "example.com/rt",
		Foreign: map[string]Foreign{
			"time.Instant": {Import: "example.com/timex", Type: "timex.Instant", Codec: "timex.InstantCodec"},
		},
	}

	assert.Equal(t, gogen.Options{
		Package:    "model",
		WireImport: "example.com/rt",
		Foreign: map[string]gogen.Foreign{
			"time.Instant": {Import: "example.com/timex", Type: "timex.Instant", Codec: "timex.InstantCodec"},
		},
	}, cfg.GenOptions())
	assert.Nil(t, Default().GenOptions().Foreign)
}
