package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/engine"
	"github.com/rune-engine/rune/internal/output"
)

func newReindexCmd() *cobra.Command {
	var roots []string
	var repositories []string
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-walk one or more repositories",
		Long:  `Re-walk the requested repositories (every configured root by default), re-chunking files whose content changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd.Context(), cmd, roots, repositories, force)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "Workspace root(s) (repeatable; default: detected project root)")
	cmd.Flags().StringSliceVar(&repositories, "repository", nil, "Restrict to these repository labels (repeatable; default: all)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-chunk every file even if its content hash is unchanged")

	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command, roots, repositories []string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(ctx, roots)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	res, err := eng.Reindex(ctx, engine.ReindexOptions{Repositories: repositories, Force: force})
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	out.Successf("scanned %d, indexed %d, skipped %d, removed %d", res.FilesScanned, res.FilesIndexed, res.FilesSkipped, res.FilesRemoved)
	for _, e := range res.Errors {
		out.Warning(e)
	}

	return nil
}
