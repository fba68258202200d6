package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/toolserver"
)

func newServeCmd() *cobra.Command {
	var roots []string
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP tool server",
		Long: `Start rune as an MCP tool server, exposing search, index_status,
reindex, and configure to AI coding assistants over stdio.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), roots, transport)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "Workspace root(s) to index and serve (repeatable; default: detected project root)")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport to serve on (stdio)")

	return cmd
}

func runServe(ctx context.Context, roots []string, transport string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(ctx, roots)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := eng.Stop(context.Background()); stopErr != nil {
			slog.Error("engine stop failed", slog.String("error", stopErr.Error()))
		}
	}()

	srv, err := toolserver.NewServer(eng, eng.Config(), slog.Default())
	if err != nil {
		return fmt.Errorf("build tool server: %w", err)
	}

	return srv.Serve(ctx, transport)
}
