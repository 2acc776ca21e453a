package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	Spans  bool   // include source spans
	Cache  string // build cache path
}

// CompilationResult summarizes a compile run.
type CompilationResult struct {
	Schema      string `json:"schema"`
	Hash        string `json:"hash"`
	Definitions int    `json:"definitions"`
	Output      string `json:"output,omitempty"`
	Cached      bool   `json:"cached"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a schema to canonical IR",
		Long: `Compile a stef schema to canonical IR JSON.

The schema is parsed and validated; the IR is written as canonical JSON
(sorted keys, no insignificant whitespace) so that it can be hashed and
diffed. Without --output the IR is written to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.Spans, "spans", false, "include source spans in the IR")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "build cache database path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadSchemas([]string{path})
	if err != nil {
		return loadFailure(formatter, err)
	}
	if len(loaded) != 1 {
		return formatter.Fail(ExitCommandError, ErrCodeBadInput, fmt.Sprintf("compile takes one schema, %s holds %d", path, len(loaded)), nil)
	}
	schema := loaded[0].Schema

	if err := compiler.Check(schema); err != nil {
		return validationFailure(formatter, err)
	}

	cache, err := openCache(opts.Cache)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer cache.Close()

	options := map[string]any{"spans": opts.Spans}
	data, cached, err := cache.produce(cmd.Context(), schema, "ir", options, func() ([]byte, error) {
		return ir.MarshalCanonical(ir.ToTree(schema, ir.TreeOptions{Spans: opts.Spans}))
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	hash, err := ir.SchemaHash(schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	result := CompilationResult{
		Schema:      schema.Name,
		Hash:        hash,
		Definitions: len(schema.Definitions),
		Output:      opts.Output,
		Cached:      cached,
	}

	if opts.Output == "" {
		if opts.Format == "json" {
			return formatter.Success(map[string]any{
				"result": result,
				"ir":     json.RawMessage(data),
			})
		}
		_, err := fmt.Fprintln(formatter.Writer, string(data))
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
	}
	formatter.VerboseLog("Wrote %d bytes to %s", len(data), opts.Output)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %s (%d definitions) to %s\n", result.Schema, result.Definitions, result.Output)
	return nil
}

// validationFailure renders the violations of a *compiler.ValidationError.
func validationFailure(formatter *OutputFormatter, err error) error {
	var ve *compiler.ValidationError
	if !errors.As(err, &ve) || len(ve.Violations) == 0 {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}
	messages := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		messages[i] = v.Error()
	}
	_ = formatter.Error(ve.Violations[0].Code, err.Error(), messages)
	if formatter.Format != "json" {
		for _, m := range messages {
			fmt.Fprintf(formatter.Writer, "  %s\n", m)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("schema %s is invalid", ve.Schema))
}
