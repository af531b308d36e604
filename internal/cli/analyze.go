package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moviepipe/moviepipe/internal/tui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report the best rated titles from the loaded table",
	Long: `Analyze runs only the analysis task against an existing movies_ratings
table and prints the titles with the highest average rating, ties broken by
title.

Examples:
  moviepipe analyze --top-n 10
  moviepipe analyze --driver sqlite --sqlite-path ./warehouse.db`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addPipelineFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildPipelineConfig(cmd, scopeAnalysis)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, false)
	defer func() { _ = logger.Sync() }()
	logWarehouseVerbose(logger, cfg)

	ctx, stop := signalContext(cmd)
	defer stop()

	top, err := newRunner(logger).Analyze(ctx, cfg)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTopRated(top))
	return nil
}
