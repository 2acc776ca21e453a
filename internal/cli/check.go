package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/codec"
	"github.com/roach88/stef/internal/compiler"
	"github.com/roach88/stef/internal/ir"
)

// CheckProblem is one reason a schema cannot be compiled.
type CheckProblem struct {
	Path    string   `json:"path,omitempty"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Span    *ir.Span `json:"span,omitempty"`
}

// CheckResult holds check results.
type CheckResult struct {
	Valid    bool           `json:"valid"`
	Schemas  int            `json:"schemas"`
	Problems []CheckProblem `json:"problems,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <schema-or-dir>...",
		Short: "Validate schemas and compile their codecs",
		Long: `Validate stef schemas without writing output.

Every schema is validated in full and all violations are reported. Schemas
that pass validation are then compiled to in-memory codecs in parallel,
which also resolves every type reference.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadSchemas(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d schema file(s)", len(loaded))

	result := CheckResult{Schemas: len(loaded)}
	var valid []*ir.Schema
	for _, l := range loaded {
		formatter.VerboseLog("Validating schema: %s", l.Path)
		violations := compiler.Validate(l.Schema)
		for _, v := range violations {
			span := v.First
			result.Problems = append(result.Problems, CheckProblem{
				Path:    l.Path,
				Code:    v.Code,
				Message: v.Error(),
				Span:    &span,
			})
		}
		if len(violations) == 0 {
			valid = append(valid, l.Schema)
		}
	}

	if _, err := codec.CompileBatch(cmd.Context(), valid); err != nil {
		result.Problems = append(result.Problems, compileProblem(err))
	}

	result.Valid = len(result.Problems) == 0
	if result.Valid {
		return outputCheckSuccess(formatter, result)
	}
	return outputCheckProblems(formatter, result)
}

func compileProblem(err error) CheckProblem {
	var ce *codec.CompileError
	if errors.As(err, &ce) {
		span := ce.Span
		return CheckProblem{Code: ce.Code, Message: err.Error(), Span: &span}
	}
	return CheckProblem{Code: ErrCodeGeneric, Message: err.Error()}
}

func outputCheckSuccess(formatter *OutputFormatter, result CheckResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d schema(s) valid\n", result.Schemas)
	return nil
}

func outputCheckProblems(formatter *OutputFormatter, result CheckResult) error {
	exit := NewExitError(ExitFailure, fmt.Sprintf("check failed with %d problem(s)", len(result.Problems)))

	if formatter.Format == "json" {
		first := result.Problems[0]
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return exit
	}

	fmt.Fprintln(formatter.Writer, "✗ Check failed")
	fmt.Fprintln(formatter.Writer)
	for _, p := range result.Problems {
		var where []string
		if p.Path != "" {
			where = append(where, p.Path)
		}
		if p.Span != nil && p.Span.IsValid() {
			where = append(where, fmt.Sprintf("offset %d", p.Span.Start))
		}
		if len(where) > 0 {
			fmt.Fprintln(formatter.Writer, strings.Join(where, " "))
		}
		fmt.Fprintf(formatter.Writer, "  %s\n\n", p.Message)
	}
	return exit
}
