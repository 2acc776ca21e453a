package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/config"
	"github.com/roach88/stef/internal/gogen"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Config     string
	Output     string
	Package    string
	WireImport string
	Cache      string
}

// GeneratedFile describes one written Go file.
type GeneratedFile struct {
	Schema string `json:"schema"`
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	Cached bool   `json:"cached"`
}

// GenResult holds the files written by gen.
type GenResult struct {
	Files []GeneratedFile `json:"files"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen [schema...]",
		Short: "Generate Go codecs from schemas",
		Long: `Generate Go types with encode and decode functions for stef schemas.

Settings come from --config (YAML or TOML) and are overridden by flags.
Schema arguments replace the schemas listed in the config. With one schema
the code is written to --output ("-" for stdout); with several, each
schema is written next to --output as <schema>_stef.go.

Examples:
  stefc gen orders.cue -o orders/stef_gen.go --package orders
  stefc gen --config stef.yaml
  stefc gen --config stef.toml --cache .stef/cache.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Package, "package", "", "package name of generated code")
	cmd.Flags().StringVar(&opts.WireImport, "wire-import", "", "import path of the wire runtime")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "build cache database path")

	return cmd
}

// resolveGenConfig merges the config file, flags and arguments.
func resolveGenConfig(opts *GenOptions, args []string, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("package") {
		cfg.Package = opts.Package
	}
	if flags.Changed("wire-import") {
		cfg.WireImport = opts.WireImport
	}
	if flags.Changed("cache") {
		cfg.Cache = opts.Cache
	}
	if len(args) > 0 {
		cfg.Schemas = args
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runGen(opts *GenOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := resolveGenConfig(opts, args, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	loaded, err := LoadSchemas(cfg.Schemas)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if cfg.Output == "-" && len(loaded) > 1 {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, "output - takes a single schema", nil)
	}

	cache, err := openCache(cfg.Cache)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer cache.Close()

	genOpts := cfg.GenOptions()
	options := genCacheOptions(genOpts)

	result := GenResult{Files: []GeneratedFile{}}
	for _, l := range loaded {
		formatter.VerboseLog("Generating Go for %s", l.Path)
		src, cached, err := cache.produce(cmd.Context(), l.Schema, "go", options, func() ([]byte, error) {
			return gogen.Generate(l.Schema, genOpts)
		})
		if err != nil {
			return genFailure(formatter, l.Path, err)
		}

		if cfg.Output == "-" {
			_, err := formatter.Writer.Write(src)
			return err
		}
		path := cfg.Output
		if len(loaded) > 1 {
			path = filepath.Join(filepath.Dir(cfg.Output), outputName(l.Schema.Name))
		}
		if err := writeGenerated(path, src); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		result.Files = append(result.Files, GeneratedFile{
			Schema: l.Schema.Name,
			Path:   path,
			Bytes:  len(src),
			Cached: cached,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	for _, f := range result.Files {
		suffix := ""
		if f.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(formatter.Writer, "✓ Generated %s from %s%s\n", f.Path, f.Schema, suffix)
	}
	return nil
}

// genCacheOptions renders the options that change generated code, for the
// artifact key.
func genCacheOptions(o gogen.Options) map[string]any {
	options := map[string]any{
		"package":     o.Package,
		"wire_import": o.WireImport,
	}
	if len(o.Foreign) > 0 {
		foreign := make(map[string]any, len(o.Foreign))
		for name, f := range o.Foreign {
			foreign[name] = map[string]any{"import": f.Import, "type": f.Type, "codec": f.Codec}
		}
		options["foreign"] = foreign
	}
	return options
}

// outputName derives a file name from a schema name such as "acme-orders.v1".
func outputName(schema string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, schema)
	return name + "_stef.go"
}

func writeGenerated(path string, src []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func genFailure(formatter *OutputFormatter, path string, err error) error {
	var ve *compiler.ValidationError
	switch {
	case errors.As(err, &ve):
		return validationFailure(formatter, err)
	case errors.Is(err, gogen.ErrUnsupported):
		return formatter.Fail(ExitFailure, ErrCodeGeneric, fmt.Sprintf("%s: %v", path, err), nil)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("%s: %v", path, err), nil)
	}
}
