package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a wire conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of the reader schema. Paths are relative to the
	// scenario file location.
	Schema string `yaml:"schema"`

	// Writer is the path of the schema that encodes case values. If empty,
	// Schema is used, so that cases test round trips.
	Writer string `yaml:"writer,omitempty"`

	// Type is the qualified name of the type under test, e.g. "geo.Point".
	Type string `yaml:"type"`

	// Cases run in order.
	Cases []Case `yaml:"cases"`
}

// Case is one encode and decode check.
type Case struct {
	Name string `yaml:"name"`

	// Value is encoded with the writer schema. Exclusive with Hex.
	Value any `yaml:"value,omitempty"`

	// Hex is decoded directly. Exclusive with Value.
	Hex string `yaml:"hex,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a case.
type Expect struct {
	// Hex is the expected encoding of the case value.
	Hex string `yaml:"hex,omitempty"`

	// Decoded is the expected decoded value in native form.
	Decoded any `yaml:"decoded,omitempty"`

	// Error is the expected wire error code, e.g. "UNKNOWN_VARIANT".
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Schema paths are
// resolved relative to the directory of the file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "case:" vs "cases:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.Schema = resolve(basePath, scenario.Schema)
	scenario.Writer = resolve(basePath, scenario.Writer)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Type == "" {
		return fmt.Errorf("type is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	for _, path := range []string{s.Schema, s.Writer} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", path)
		}
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if err := validateCase(i, &c); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
	}

	return nil
}

func validateCase(index int, c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("cases[%d]: name is required", index)
	}
	hasValue := c.Value != nil
	hasHex := c.Hex != ""
	switch {
	case hasValue && hasHex:
		return fmt.Errorf("cases[%d]: value and hex are mutually exclusive", index)
	case !hasValue && !hasHex:
		return fmt.Errorf("cases[%d]: one of value or hex is required", index)
	}
	if hasHex {
		if _, err := hex.DecodeString(c.Hex); err != nil {
			return fmt.Errorf("cases[%d]: invalid hex: %w", index, err)
		}
	}

	e := c.Expect
	if e == nil {
		return nil
	}
	if e.Hex != "" {
		if hasHex {
			return fmt.Errorf("cases[%d].expect: hex requires a value to encode", index)
		}
		if _, err := hex.DecodeString(e.Hex); err != nil {
			return fmt.Errorf("cases[%d].expect: invalid hex: %w", index, err)
		}
	}
	if e.Error != "" && e.Decoded != nil {
		return fmt.Errorf("cases[%d].expect: error and decoded are mutually exclusive", index)
	}
	if e.Error != "" && !knownErrorCode(e.Error) {
		return fmt.Errorf("cases[%d].expect: unknown error code %q", index, e.Error)
	}
	return nil
}
