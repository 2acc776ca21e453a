package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stef/internal/ir"
)

// Snapshot captures the outcome of every case of a scenario.
type Snapshot struct {
	Scenario string       `json:"scenario"`
	Cases    []CaseResult `json:"cases"`
}

// toCanonicalMap converts a Snapshot for ir.MarshalCanonical, which only
// accepts maps, slices and scalars.
func (s *Snapshot) toCanonicalMap() map[string]any {
	cases := make([]any, len(s.Cases))
	for i, c := range s.Cases {
		m := map[string]any{"name": c.Name}
		if c.Hex != "" {
			m["hex"] = c.Hex
		}
		if c.Decoded != "" {
			m["decoded"] = c.Decoded
		}
		if c.Error != "" {
			m["error"] = c.Error
		}
		cases[i] = m
	}
	return map[string]any{
		"scenario": s.Scenario,
		"cases":    cases,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario, fails t for unmet expectations and
// compares the snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{Scenario: scenarioName, Cases: result.Cases}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
