// Package config loads stefc generation settings from a YAML or TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/stef/internal/gogen"
)

// DefaultOutput is the generated file name used when none is configured.
const DefaultOutput = "stef_gen.go"

// Config holds the settings of one generation run.
type Config struct {
	// Package is the package clause of generated code. Empty derives it
	// from the schema name.
	Package string `yaml:"package"`

	// Output is the path of the generated Go file.
	Output string `yaml:"output"`

	// Schemas lists the CUE schema files to compile. Relative paths are
	// resolved against the directory of the config file.
	Schemas []string `yaml:"schemas"`

	// Cache is the path of the sqlite artifact cache. Empty disables caching.
	Cache string `yaml:"cache"`

	// WireImport overrides the import path of the wire runtime.
	WireImport string `yaml:"wire_import"`

	// Foreign maps qualified names of foreign types to their Go rendering.
	Foreign map[string]Foreign `yaml:"foreign"`
}

// Foreign is the Go rendering of a type the schema imports but does not
// define.
type Foreign struct {
	Import string `yaml:"import" toml:"import"`
	Type   string `yaml:"type" toml:"type"`
	Codec  string `yaml:"codec" toml:"codec"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Output: DefaultOutput}
}

// tomlConfig mirrors Config with TOML key names.
type tomlConfig struct {
	Package    string             `toml:"package"`
	Output     string             `toml:"output"`
	Schemas    []string           `toml:"schemas"`
	Cache      string             `toml:"cache"`
	WireImport string             `toml:"wire_import"`
	Foreign    map[string]Foreign `toml:"foreign"`
}

// Load reads a configuration file. The format is chosen by extension:
// .yaml, .yml or .toml. Unknown keys are rejected in both formats.
func Load(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	case ".toml":
		cfg, err = loadTOML(path)
	default:
		return Config{}, fmt.Errorf("load config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, err
	}

	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("load config: parse YAML: %w", err)
	}
	return cfg, nil
}

func loadTOML(path string) (Config, error) {
	cfg := Default()

	var raw tomlConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config: unknown keys: %s", strings.Join(keys, ", "))
	}

	if meta.IsDefined("package") {
		cfg.Package = strings.TrimSpace(raw.Package)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("schemas") {
		cfg.Schemas = raw.Schemas
	}
	if meta.IsDefined("cache") {
		cfg.Cache = strings.TrimSpace(raw.Cache)
	}
	if meta.IsDefined("wire_import") {
		cfg.WireImport = strings.TrimSpace(raw.WireImport)
	}
	if meta.IsDefined("foreign") {
		cfg.Foreign = raw.Foreign
	}
	return cfg, nil
}

// resolve makes relative paths relative to dir.
func (c *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, s := range c.Schemas {
		c.Schemas[i] = abs(s)
	}
	c.Output = abs(c.Output)
	c.Cache = abs(c.Cache)
}

// Validate checks the fields that do not depend on the schema.
func (c Config) Validate() error {
	if c.Package != "" && !token.IsIdentifier(c.Package) {
		return fmt.Errorf("package %q is not a Go identifier", c.Package)
	}
	if len(c.Schemas) == 0 {
		return fmt.Errorf("schemas list is required and must be non-empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	for name, f := range c.Foreign {
		if f.Type == "" || f.Codec == "" {
			return fmt.Errorf("foreign type %s needs both type and codec", name)
		}
	}
	return nil
}

// GenOptions converts the configuration into code generation options.
func (c Config) GenOptions() gogen.Options {
	opts := gogen.Options{Package: c.Package, WireImport: c.WireImport}
	if len(c.Foreign) > 0 {
		opts.Foreign = make(map[string]gogen.Foreign, len(c.Foreign))
		for name, f := range c.Foreign {
			opts.Foreign[name] = gogen.Foreign{Import: f.Import, Type: f.Type, Codec: f.Codec}
		}
	}
	return opts
}
