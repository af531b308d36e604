package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moviepipe/moviepipe/internal/db"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/internal/logging"
	"github.com/moviepipe/moviepipe/internal/pipeline"
	"github.com/moviepipe/moviepipe/internal/warehouse"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// newLogger returns the console logger for a command. While the progress
// view owns the terminal only errors are written.
func newLogger(w io.Writer, verbose, quiet bool) *logging.ConsoleLogger {
	if quiet {
		return logging.NewQuietConsoleLogger(w)
	}
	return logging.NewConsoleLoggerTo(w, verbose)
}

// newRunner wires a pipeline.Runner against the host filesystem and the real
// warehouse drivers. Task events always go to the log; extra observers
// receive them too.
func newRunner(logger moviepipe.Logger, extra ...pipeline.Observer) *pipeline.Runner {
	fsys := filesystem.NewOSFileSystem()
	observers := pipeline.Observers{pipeline.NewLogObserver(logger)}
	for _, o := range extra {
		if o != nil {
			observers = append(observers, o)
		}
	}
	return pipeline.NewRunner(fsys, warehouse.Open, pipeline.S3FetcherFactory(fsys, logger), logger, observers)
}

// signalContext derives a context from cmd that is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// logWarehouseVerbose logs where the run will read from and load to.
func logWarehouseVerbose(logger moviepipe.Logger, cfg moviepipe.PipelineConfig) {
	logger.Verbose("Raw dir: %s", cfg.RawDir)
	logger.Verbose("Tmp dir: %s", cfg.TmpDir)
	if cfg.Source.Enabled() {
		logger.Verbose("Source: s3://%s/%s", cfg.Source.Bucket, cfg.Source.Prefix)
	}

	wh := cfg.Warehouse
	switch wh.Driver {
	case moviepipe.DriverPostgres:
		logger.Verbose("Warehouse: %s (auth %s, insert mode %s)", db.Redacted(wh.Connection), wh.Connection.AuthMethod, wh.InsertMode)
	case moviepipe.DriverSQLite:
		logger.Verbose("Warehouse: sqlite %s", wh.SQLitePath)
	}
}
