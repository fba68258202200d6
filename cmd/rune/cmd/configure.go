package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rune-engine/rune/internal/config"
	"github.com/rune-engine/rune/internal/engine"
)

func newConfigureCmd() *cobra.Command {
	var roots []string
	var maxFileSize int64
	var indexingThreads int
	var enableSemantic bool
	var languages []string
	var fuzzyEnabled bool
	var fuzzyThreshold float64
	var fuzzyMaxDistance int
	var quantizationMode string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Apply a live configuration update",
		Long: `Apply a partial configuration update to a running engine and print the
effective configuration. Only flags explicitly set on the command line are
applied; everything else is left unchanged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update := engine.ConfigUpdate{}
			flags := cmd.Flags()

			if flags.Changed("max-file-size") {
				update.MaxFileSize = &maxFileSize
			}
			if flags.Changed("indexing-threads") {
				update.IndexingThreads = &indexingThreads
			}
			if flags.Changed("enable-semantic") {
				update.EnableSemantic = &enableSemantic
			}
			if flags.Changed("languages") {
				update.Languages = languages
			}
			if flags.Changed("fuzzy-enabled") {
				update.FuzzyEnabled = &fuzzyEnabled
			}
			if flags.Changed("fuzzy-threshold") {
				update.FuzzyThreshold = &fuzzyThreshold
			}
			if flags.Changed("fuzzy-max-distance") {
				update.FuzzyMaxDist = &fuzzyMaxDistance
			}
			if flags.Changed("quantization-mode") {
				qm := config.QuantizationMode(quantizationMode)
				update.Quantization = &qm
			}

			return runConfigure(cmd.Context(), cmd, roots, update)
		},
	}

	cmd.Flags().StringSliceVar(&roots, "root", nil, "Workspace root(s) (repeatable; default: detected project root)")
	cmd.Flags().Int64Var(&maxFileSize, "max-file-size", 0, "Maximum file size to index, in bytes")
	cmd.Flags().IntVar(&indexingThreads, "indexing-threads", 0, "Worker pool size for full-scan indexing")
	cmd.Flags().BoolVar(&enableSemantic, "enable-semantic", false, "Enable semantic search")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "Languages to extract symbols for")
	cmd.Flags().BoolVar(&fuzzyEnabled, "fuzzy-enabled", false, "Enable the fuzzy-retry fallback")
	cmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0, "Minimum similarity score for a fuzzy match")
	cmd.Flags().IntVar(&fuzzyMaxDistance, "fuzzy-max-distance", 0, "Maximum edit distance for a fuzzy match")
	cmd.Flags().StringVar(&quantizationMode, "quantization-mode", "", "Vector store quantization mode: none, scalar, binary, asymmetric")

	return cmd
}

func runConfigure(ctx context.Context, cmd *cobra.Command, roots []string, update engine.ConfigUpdate) error {
	eng, err := openEngine(ctx, roots)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Stop(context.Background()) }()

	effective, err := eng.Configure(update)
	if err != nil {
		return fmt.Errorf("configure rejected: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(effective)
}
