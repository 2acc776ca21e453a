package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/ir"
)

// HashEntry is the content hash of one schema.
type HashEntry struct {
	Path   string `json:"path"`
	Schema string `json:"schema"`
	Hash   string `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <schema-or-dir>...",
		Short: "Print schema content hashes",
		Long: `Print the content hash of each schema.

The hash covers the canonical IR without source spans, so reformatting a
schema file does not change it. Build cache keys are derived from it.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runHash(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, err := LoadSchemas(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}

	entries := make([]HashEntry, 0, len(loaded))
	for _, l := range loaded {
		hash, err := ir.SchemaHash(l.Schema)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("%s: %v", l.Path, err), nil)
		}
		entries = append(entries, HashEntry{Path: l.Path, Schema: l.Schema.Name, Hash: hash})
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s  %s\n", e.Hash, e.Path)
	}
	return nil
}
