package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario and an empty schema file next to it.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.cue"), []byte("definitions: []\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: sample
description: "A sample scenario"
schema: s.cue
type: geo.Point
cases:
  - name: origin
    value: {x: 0, y: 0}
    expect:
      hex: "0800100000"
  - name: raw
    hex: "00"
    expect:
      error: MISSING_FIELD
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "sample", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "s.cue"), scenario.Schema)
	assert.Empty(t, scenario.Writer)
	assert.Equal(t, "geo.Point", scenario.Type)
	require.Len(t, scenario.Cases, 2)
	assert.Equal(t, map[string]any{"x": 0, "y": 0}, scenario.Cases[0].Value)
	assert.Equal(t, "0800100000", scenario.Cases[0].Expect.Hex)
	assert.Equal(t, "MISSING_FIELD", scenario.Cases[1].Expect.Error)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: sample
description: "typo"
schema: s.cue
type: T
case:
  - name: a
    hex: "00"
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	const header = "name: n\ndescription: d\nschema: s.cue\ntype: T\n"
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "description: d\nschema: s.cue\ntype: T\ncases: [{name: a, hex: '00'}]\n", "name is required"},
		{"missing description", "name: n\nschema: s.cue\ntype: T\ncases: [{name: a, hex: '00'}]\n", "description is required"},
		{"missing schema", "name: n\ndescription: d\ntype: T\ncases: [{name: a, hex: '00'}]\n", "schema is required"},
		{"missing type", "name: n\ndescription: d\nschema: s.cue\ncases: [{name: a, hex: '00'}]\n", "type is required"},
		{"no cases", header, "cases list is required"},
		{"schema not found", "name: n\ndescription: d\nschema: nope.cue\ntype: T\ncases: [{name: a, hex: '00'}]\n", "schema file not found"},
		{"writer not found", header + "writer: nope.cue\ncases: [{name: a, hex: '00'}]\n", "schema file not found"},
		{"case without name", header + "cases: [{hex: '00'}]\n", "cases[0]: name is required"},
		{"case without input", header + "cases: [{name: a}]\n", "one of value or hex is required"},
		{"value and hex", header + "cases: [{name: a, hex: '00', value: 1}]\n", "mutually exclusive"},
		{"bad hex", header + "cases: [{name: a, hex: 'zz'}]\n", "invalid hex"},
		{"duplicate case", header + "cases: [{name: a, hex: '00'}, {name: a, hex: '01'}]\n", "duplicate case name"},
		{"expect hex without value", header + "cases: [{name: a, hex: '00', expect: {hex: '00'}}]\n", "requires a value"},
		{"error and decoded", header + "cases: [{name: a, hex: '00', expect: {error: TRUNCATED, decoded: 1}}]\n", "mutually exclusive"},
		{"unknown error code", header + "cases: [{name: a, hex: '00', expect: {error: BROKEN}}]\n", `unknown error code "BROKEN"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	path := writeScenario(t, "name: n\ndescription: d\nschema: s.cue\ntype: T\ncases: [{name: a, hex: '00'}]\n")
	dir := filepath.Dir(path)

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "s.cue"), scenario.Schema)

	abs := filepath.Join(dir, "s.cue")
	assert.Equal(t, abs, resolve("/elsewhere", abs), "absolute paths are kept")
	assert.Equal(t, "s.cue", resolve("", "s.cue"))
}
