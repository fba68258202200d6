package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/output"
)

func newStatsCmd() *cobra.Command {
	var roots []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show indexed file/chunk counts and watcher health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, roots, jsonOutput)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "Workspace root(s) (repeatable; default: detected project root)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, roots []string, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(ctx, roots)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	stats, err := eng.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out.Statusf("", "workspace:       %s", stats.WorkspaceID)
	out.Statusf("", "repository:      %s (%s)", stats.Repository, stats.ProjectType)
	out.Statusf("", "indexed files:   %d", stats.IndexedFiles)
	out.Statusf("", "chunks:          %d", stats.TotalChunks)
	out.Statusf("", "symbols:         %d", stats.TotalSymbols)
	out.Statusf("", "index size:      %d bytes", stats.IndexSizeBytes)
	out.Statusf("", "cache:           %d entries, %d hits, %d misses", stats.CacheEntries, stats.CacheHits, stats.CacheMisses)
	out.Statusf("", "watcher:         %s", stats.WatcherStatus)
	if stats.Degraded {
		out.Warning("degraded:")
		for _, n := range stats.DegradedNotes {
			out.Warning("  " + n)
		}
	}

	return nil
}
