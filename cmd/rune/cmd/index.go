package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/engine"
	"github.com/rune-engine/rune/internal/output"
)

func newIndexCmd() *cobra.Command {
	var roots []string
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the workspace and exit",
		Long:  `Walk the configured workspace root(s), chunk and embed every file, then exit — no watcher, no server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, roots, force)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "Workspace root(s) to index (repeatable; default: detected project root)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-chunk every file even if its content hash is unchanged")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, roots []string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig(roots)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	out.Status("", fmt.Sprintf("indexing %v", cfg.WorkspaceRoots))

	// Start performs the initial scan (force=false) and starts the watcher.
	// --force asks for a second, exhaustive pass once the engine is live.
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	if force {
		res, err := eng.Reindex(ctx, engine.ReindexOptions{Force: true})
		if err != nil {
			return fmt.Errorf("forced reindex failed: %w", err)
		}
		out.Successf("indexed %d files (%d scanned, %d skipped)", res.FilesIndexed, res.FilesScanned, res.FilesSkipped)
		for _, e := range res.Errors {
			out.Warning(e)
		}
		return nil
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read index stats: %w", err)
	}
	out.Successf("indexed %d files, %d chunks", stats.IndexedFiles, stats.TotalChunks)

	return nil
}
