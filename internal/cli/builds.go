package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stef/internal/store"
)

// BuildEntry is one recorded build.
type BuildEntry struct {
	ID              string   `json:"id"`
	Seq             int64    `json:"seq"`
	Schema          string   `json:"schema"`
	Hash            string   `json:"hash"`
	CompilerVersion string   `json:"compiler_version"`
	Targets         []string `json:"targets"`
}

// NewBuildsCommand creates the builds command.
func NewBuildsCommand(rootOpts *RootOptions) *cobra.Command {
	var cachePath string

	cmd := &cobra.Command{
		Use:   "builds --cache <db>",
		Short: "List builds recorded in a build cache",
		Long: `List the builds recorded in a build cache database in the order they
ran, with the artifact targets stored for each schema hash.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(rootOpts, cachePath, cmd)
		},
	}

	cmd.Flags().StringVar(&cachePath, "cache", "", "build cache database path")
	_ = cmd.MarkFlagRequired("cache")

	return cmd
}

func runBuilds(opts *RootOptions, cachePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(cachePath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, fmt.Sprintf("%s: cache not found", cachePath), nil)
	}
	st, err := store.Open(cachePath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	builds, err := st.ListBuilds(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
	}

	entries := make([]BuildEntry, 0, len(builds))
	targets := map[string][]string{}
	for _, b := range builds {
		if _, ok := targets[b.SchemaHash]; !ok {
			artifacts, err := st.ArtifactsForSchema(ctx, b.SchemaHash)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeCache, err.Error(), nil)
			}
			list := []string{}
			for _, a := range artifacts {
				list = append(list, a.Target)
			}
			targets[b.SchemaHash] = list
		}
		entries = append(entries, BuildEntry{
			ID:              b.ID,
			Seq:             b.Seq,
			Schema:          b.SchemaName,
			Hash:            b.SchemaHash,
			CompilerVersion: b.CompilerVersion,
			Targets:         targets[b.SchemaHash],
		})
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No builds recorded.")
		return nil
	}
	for _, e := range entries {
		hash := e.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-24s %s  %v\n", e.Seq, e.ID, e.Schema, hash, e.Targets)
	}
	return nil
}
