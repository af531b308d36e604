package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `moviepipe - movies and ratings ETL`

var rootCmd = &cobra.Command{
	Use:   "moviepipe",
	Short: "Movies and ratings ETL pipeline",
	Long: banner + `

moviepipe reads movies.csv and ratings.csv, cleans both files in parallel,
joins them on movieId, loads the result into the movies_ratings table and
reports the best rated titles.

Task graph:
  ingest_movies, ingest_ratings -> create_tmp_dir
  -> transform_movies || transform_ratings -> merge_data
  -> load_table -> analysis -> cleanup

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Warehouse connection failed
  12 - movies.csv or ratings.csv not found
  13 - Malformed CSV input
  14 - Loading movies_ratings failed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", "", "Path to moviepipe.yaml (default: ./moviepipe.yaml when present)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
