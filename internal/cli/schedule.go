package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moviepipe/moviepipe/internal/metrics"
	"github.com/moviepipe/moviepipe/internal/schedule"
	"github.com/moviepipe/moviepipe/internal/tui"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

var scheduleFlags struct {
	at          string
	metricsAddr string
	runNow      bool
	watch       bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline daily until interrupted",
	Long: `Schedule keeps moviepipe running and executes the pipeline once a day at
the configured UTC time (midnight by default). Missed days are not caught up
and runs never overlap: a trigger that fires while a run is in progress is
dropped.

With --watch the raw dir is watched as well, and a change to movies.csv or
ratings.csv triggers a run after a short quiet period.

With --metrics-addr run and task metrics are served in Prometheus format on
/metrics, with a liveness probe on /healthz.

Examples:
  moviepipe schedule --at 02:30 --metrics-addr :9102
  moviepipe schedule --run-now --watch --driver sqlite --sqlite-path ./warehouse.db`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	addPipelineFlags(scheduleCmd)
	f := scheduleCmd.Flags()
	f.StringVar(&scheduleFlags.at, "at", "@daily", "Daily run time in UTC (HH:MM, @daily or @midnight)")
	f.StringVar(&scheduleFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.BoolVar(&scheduleFlags.runNow, "run-now", false, "Run once immediately on start")
	f.BoolVar(&scheduleFlags.watch, "watch", false, "Also run when the raw files change")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, projectCfg, err := buildPipelineConfig(cmd, scopeRun)
	if err != nil {
		return err
	}

	l := layered{cmd: cmd}
	at, err := schedule.ParseTimeOfDay(l.str("at", scheduleFlags.at, "MOVIEPIPE_SCHEDULE_AT", projectCfg.Schedule.At, "@daily"))
	if err != nil {
		return err
	}
	metricsAddr := l.str("metrics-addr", scheduleFlags.metricsAddr, "MOVIEPIPE_METRICS_ADDR", projectCfg.Schedule.MetricsAddr, "")

	logger := newLogger(cmd.ErrOrStderr(), verbose, false)
	defer func() { _ = logger.Sync() }()
	logWarehouseVerbose(logger, cfg)

	collector := metrics.NewCollector()
	runner := newRunner(logger, collector)
	out := cmd.OutOrStdout()

	sched := schedule.New(at, func(ctx context.Context) error {
		report, err := runner.Run(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tui.RenderTopRated(report.TopRated))
		return nil
	}, logger)

	ctx, stop := signalContext(cmd)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		srv, err := metrics.Listen(metricsAddr, collector.Handler(), logger)
		if err != nil {
			return fmt.Errorf("%w: %w", moviepipe.ErrInvalidConfig, err)
		}
		g.Go(func() error { return srv.Serve(gctx) })
	}

	if scheduleFlags.watch {
		if cfg.Source.Enabled() {
			logger.Info("Ignoring --watch: raw files are fetched from s3://%s", cfg.Source.Bucket)
		} else {
			w := schedule.NewWatcher(cfg.RawDir, []string{moviepipe.MoviesFile, moviepipe.RatingsFile}, schedule.DefaultDebounce, sched, logger)
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	g.Go(func() error { return sched.Start(gctx, scheduleFlags.runNow) })

	logger.Info("Scheduled daily at %s", at)
	return g.Wait()
}
