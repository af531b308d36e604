package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moviepipe/moviepipe/internal/pipeline"
	"github.com/moviepipe/moviepipe/internal/tui"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the task graph",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderGraph(pipeline.Stages()))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
