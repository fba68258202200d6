// Package cmd provides the CLI commands for rune.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/engine"
	"github.com/rune-engine/rune/internal/logging"
	"github.com/rune-engine/rune/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the rune CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rune",
		Short: "Local-first hybrid code search engine for AI coding assistants",
		Long: `rune indexes one or more workspace roots and serves literal, regex,
symbol, semantic, and fused hybrid search over them — as a long-running
MCP tool server for AI coding assistants, or as one-shot CLI operations.

Run 'rune serve' in a project directory to start the MCP server, or use
'rune index' / 'rune search' / 'rune stats' for direct CLI access.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("rune version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.rune/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newConfigureCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the workspace root(s) and loads config.yaml, falling
// back to defaults rooted at the current directory when none is found.
func loadConfig(roots []string) (*config.Config, error) {
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root, err := config.FindProjectRoot(cwd)
		if err != nil {
			root = cwd
		}
		roots = []string{root}
	}

	cfg, err := config.Load(roots[0])
	if err != nil {
		cfg = config.NewConfig()
	}
	cfg.WorkspaceRoots = roots

	return cfg, nil
}

// openEngine builds, initializes, and starts an Engine for roots, ready for
// Search/Stats/Reindex calls. Callers must Stop it when done.
func openEngine(ctx context.Context, roots []string) (*engine.Engine, error) {
	cfg, err := loadConfig(roots)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	if err := eng.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	return eng, nil
}
