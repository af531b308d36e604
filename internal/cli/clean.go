package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove intermediate files left in the tmp dir",
	Long: `Clean runs only the cleanup task: movies_clean.csv, ratings_clean.csv and
merged_data.csv are removed from the tmp dir. Missing files are not an error.
Use it after a failed run or a run with --keep-intermediate.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	addPipelineFlags(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildPipelineConfig(cmd, scopeCleanup)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, false)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signalContext(cmd)
	defer stop()

	removed, err := newRunner(logger).Clean(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	for _, p := range removed {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
