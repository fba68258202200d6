package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/engine"
	"github.com/rune-engine/rune/internal/output"
	"github.com/rune-engine/rune/internal/search"
)

type searchOptions struct {
	mode         string
	limit        int
	offset       int
	format       string
	repositories []string
	filePatterns []string
	roots        []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed workspace",
		Long: `Search the indexed workspace in literal, regex, symbol, semantic, or
fused hybrid mode (the default).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: literal, regex, symbol, semantic, hybrid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Pagination offset")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVar(&opts.repositories, "repository", nil, "Restrict to these repository labels (repeatable)")
	cmd.Flags().StringSliceVar(&opts.filePatterns, "file-pattern", nil, "Restrict to paths matching these globs (repeatable)")
	cmd.Flags().StringSliceVar(&opts.roots, "root", nil, "Workspace root(s) to search (repeatable; default: detected project root)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	eng, err := openEngine(ctx, opts.roots)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	req := engine.SearchRequest{
		Query:        query,
		Mode:         search.Mode(opts.mode),
		Repositories: opts.repositories,
		FilePatterns: opts.filePatterns,
		Limit:        opts.limit,
		Offset:       opts.offset,
	}

	resp, err := eng.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Results) == 0 {
		out.Status("", fmt.Sprintf("no results for %q", query))
		return nil
	}

	out.Statusf("", "%d results (%d total, %dms)", len(resp.Results), resp.TotalMatches, resp.SearchTimeMs)
	out.Newline()
	for i, r := range resp.Results {
		out.Statusf("", "%d. %s:%d (score: %.3f, %s)", i+1, r.Path, r.LineNumber, r.Score, r.MatchType)
		for _, line := range strings.Split(r.Content, "\n") {
			out.Status("", "   "+line)
		}
	}
	for _, d := range resp.Degraded {
		out.Warningf("degraded: %s", d)
	}

	return nil
}
