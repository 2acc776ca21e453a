package harness

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err)
		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_ReportsCaseOutcomes(t *testing.T) {
	result, err := Run(loadTestScenario(t, "status_compat"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []CaseResult{
		{Name: "open", Hex: "01", Decoded: "#1{}"},
		{Name: "closed", Hex: "020a0900", Decoded: "#2{1: 9}"},
		{Name: "held_unknown", Hex: "03", Error: "UNKNOWN_VARIANT"},
	}, result.Cases)
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario := loadTestScenario(t, "order_roundtrip")
	scenario.Cases = []Case{
		{Name: "wrong_hex", Value: map[string]any{"id": 5}, Expect: &Expect{Hex: "ff"}},
		{Name: "wrong_error", Hex: "080500", Expect: &Expect{Error: "TRUNCATED"}},
		{Name: "wrong_decoded", Hex: "080500", Expect: &Expect{Decoded: map[string]any{"id": 6}}},
		{Name: "undecodable", Hex: "08"},
		{Name: "bad_value", Value: map[string]any{"id": "five"}},
		{Name: "ok", Hex: "080500", Expect: &Expect{Decoded: map[string]any{"id": 5}}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `case "wrong_hex": hex check failed`)
	assert.Contains(t, result.Errors[1], `case "wrong_error": error check failed`)
	assert.Contains(t, result.Errors[1], "decode succeeded")
	assert.Contains(t, result.Errors[2], "Expected: {1: 6, 2: none}")
	assert.Contains(t, result.Errors[2], "Actual: {1: 5, 2: none}")
	assert.Contains(t, result.Errors[3], `case "undecodable": decode`)
	assert.Contains(t, result.Errors[4], `case "bad_value": value`)

	// bad_value produced no input and has no case result.
	require.Len(t, result.Cases, 5)
	assert.Equal(t, "ok", result.Cases[4].Name)
	assert.Equal(t, "TRUNCATED", result.Cases[3].Error)
}

func TestRun_UnknownType(t *testing.T) {
	scenario := loadTestScenario(t, "order_roundtrip")
	scenario.Type = "Missing"

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reader schema")
}

func TestRun_InvalidSchema(t *testing.T) {
	dir := t.TempDir()
	schema := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(schema, []byte(`definitions: [{struct: "A"}, {struct: "A"}]`), 0o644))

	scenario := &Scenario{Name: "bad", Schema: schema, Type: "A", Cases: []Case{{Name: "a", Hex: "00"}}}
	_, err := Run(scenario)
	require.Error(t, err)
}

func TestHarness_Logs(t *testing.T) {
	var buf bytes.Buffer
	h := New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	result, err := h.Run(loadTestScenario(t, "order_roundtrip"))
	require.NoError(t, err)
	assert.True(t, result.Pass)

	out := buf.String()
	assert.Contains(t, out, "case executed")
	assert.Contains(t, out, "scenario=order_roundtrip")
	assert.Contains(t, out, "pass=true")
}

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "order_compat.yaml"),
		filepath.Join("testdata", "scenarios", "order_roundtrip.yaml"),
		filepath.Join("testdata", "scenarios", "status_compat.yaml"),
	}, paths)

	_, err = FindScenarios(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSnapshot_MarshalCanonical(t *testing.T) {
	s := Snapshot{Scenario: "x", Cases: []CaseResult{{Name: "a", Hex: "00", Error: "TRUNCATED"}}}
	data, err := s.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"cases":[{"error":"TRUNCATED","hex":"00","name":"a"}],"scenario":"x"}`, string(data))
}
