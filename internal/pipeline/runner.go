package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/internal/source"
	"github.com/moviepipe/moviepipe/internal/transform"
	"github.com/moviepipe/moviepipe/internal/warehouse"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// StoreOpener connects to the warehouse. warehouse.Open is the production implementation.
type StoreOpener func(ctx context.Context, cfg moviepipe.WarehouseConfig, logger moviepipe.Logger) (warehouse.Store, error)

// FetcherFactory builds the Fetcher used by the ingest tasks when an S3
// source is configured.
type FetcherFactory func(ctx context.Context, cfg moviepipe.SourceConfig) (source.Fetcher, error)

// S3FetcherFactory returns a FetcherFactory backed by the AWS SDK.
func S3FetcherFactory(fsys filesystem.FileSystem, logger moviepipe.Logger) FetcherFactory {
	return func(ctx context.Context, cfg moviepipe.SourceConfig) (source.Fetcher, error) {
		client, err := source.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return source.NewS3Fetcher(client, cfg, fsys, logger), nil
	}
}

// Runner executes pipeline runs.
// Thread-Safety: Run may be called from several goroutines only if the runs
// use different tmp dirs and warehouses.
type Runner struct {
	fsys       filesystem.FileSystem
	openStore  StoreOpener
	newFetcher FetcherFactory
	logger     moviepipe.Logger
	observer   Observer
	now        func() time.Time
}

// NewRunner creates a Runner with all dependencies injected.
// Panics on nil dependencies; those are wiring mistakes, not runtime conditions.
func NewRunner(
	fsys filesystem.FileSystem,
	openStore StoreOpener,
	newFetcher FetcherFactory,
	logger moviepipe.Logger,
	observer Observer,
) *Runner {
	if fsys == nil {
		panic("fsys cannot be nil")
	}
	if openStore == nil {
		panic("openStore cannot be nil")
	}
	if newFetcher == nil {
		panic("newFetcher cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if observer == nil {
		observer = Observers{}
	}
	return &Runner{
		fsys:       fsys,
		openStore:  openStore,
		newFetcher: newFetcher,
		logger:     logger,
		observer:   observer,
		now:        time.Now,
	}
}

// task is one node of the graph bound to a run.
type task struct {
	name string
	fn   func(ctx context.Context) error
}

// run carries the paths and counters passed from one task to the next.
// Tasks of the same stage write disjoint fields.
type run struct {
	cfg       moviepipe.PipelineConfig
	workspace *Workspace
	report    *moviepipe.RunReport

	moviesRaw  string
	ratingsRaw string
}

// Run executes the whole graph once. The returned report is never nil; on
// failure it holds the counters of the tasks that completed.
func (r *Runner) Run(ctx context.Context, cfg moviepipe.PipelineConfig) (*moviepipe.RunReport, error) {
	report := &moviepipe.RunReport{RunID: uuid.New(), StartedAt: r.now()}

	if err := cfg.Validate(); err != nil {
		report.FinishedAt = r.now()
		return report, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	r.observer.RunStarted(report.RunID)

	rn := &run{
		cfg:       cfg,
		workspace: NewWorkspace(r.fsys, cfg.TmpDir, r.logger),
		report:    report,
	}

	err := r.execute(ctx, rn)

	report.FinishedAt = r.now()
	r.observer.RunFinished(report, err)
	return report, err
}

func (r *Runner) execute(ctx context.Context, rn *run) error {
	reader, err := r.sourceReader(ctx, rn.cfg)
	if err != nil {
		r.skip(Stages())
		return err
	}

	tasks := map[string]func(context.Context) error{
		TaskIngestMovies: func(ctx context.Context) error {
			p, err := reader.Movies(ctx)
			rn.moviesRaw = p
			return err
		},
		TaskIngestRatings: func(ctx context.Context) error {
			p, err := reader.Ratings(ctx)
			rn.ratingsRaw = p
			return err
		},
		TaskCreateTmpDir: func(context.Context) error {
			return rn.workspace.Prepare()
		},
		TaskTransformMovies: func(ctx context.Context) error {
			n, err := transform.CleanMovies(ctx, r.fsys, rn.moviesRaw, rn.workspace.Path(moviepipe.MoviesCleanFile))
			rn.report.MoviesKept = n
			return err
		},
		TaskTransformRatings: func(ctx context.Context) error {
			n, err := transform.CleanRatings(ctx, r.fsys, rn.ratingsRaw, rn.workspace.Path(moviepipe.RatingsCleanFile), rn.cfg.MinRating)
			rn.report.RatingsKept = n
			return err
		},
		TaskMergeData: func(ctx context.Context) error {
			n, err := transform.Merge(ctx, r.fsys,
				rn.workspace.Path(moviepipe.RatingsCleanFile),
				rn.workspace.Path(moviepipe.MoviesCleanFile),
				rn.workspace.Path(moviepipe.MergedFile))
			rn.report.MergedRows = n
			return err
		},
		TaskLoadTable: func(ctx context.Context) error {
			n, err := r.load(ctx, rn.cfg, rn.workspace.Path(moviepipe.MergedFile))
			rn.report.LoadedRows = n
			return err
		},
		TaskAnalysis: func(ctx context.Context) error {
			top, err := r.analyze(ctx, rn.cfg)
			rn.report.TopRated = top
			return err
		},
		TaskCleanup: func(context.Context) error {
			r.cleanup(rn.cfg, rn.workspace)
			return nil
		},
	}

	stages := Stages()
	for i, names := range stages {
		stage := make([]task, len(names))
		for j, name := range names {
			stage[j] = task{name: name, fn: tasks[name]}
		}
		if err := r.runStage(ctx, stage); err != nil {
			r.skip(stages[i+1:])
			return err
		}
	}
	return nil
}

// sourceReader builds the ingest reader, with an S3 fetcher when configured.
func (r *Runner) sourceReader(ctx context.Context, cfg moviepipe.PipelineConfig) (*source.Reader, error) {
	var fetcher source.Fetcher
	if cfg.Source.Enabled() {
		f, err := r.newFetcher(ctx, cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("configure S3 source: %w", err)
		}
		fetcher = f
	}
	return source.NewReader(r.fsys, cfg.RawDir, fetcher, r.logger), nil
}

// runStage runs a single task inline, or several tasks concurrently under a
// shared context that is canceled on the first failure.
func (r *Runner) runStage(ctx context.Context, stage []task) error {
	if len(stage) == 1 {
		return r.runTask(ctx, stage[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range stage {
		g.Go(func() error {
			return r.runTask(gctx, t)
		})
	}
	return g.Wait()
}

func (r *Runner) runTask(ctx context.Context, t task) error {
	r.observer.TaskStarted(t.name)
	start := r.now()

	err := ctx.Err()
	if err == nil {
		err = t.fn(ctx)
	}

	elapsed := r.now().Sub(start)
	if err != nil {
		taskErr := &moviepipe.TaskError{Task: t.name, Err: err}
		r.observer.TaskFinished(t.name, StatusFailed, elapsed, taskErr)
		return taskErr
	}
	r.observer.TaskFinished(t.name, StatusSucceeded, elapsed, nil)
	return nil
}

func (r *Runner) skip(stages [][]string) {
	for _, names := range stages {
		for _, name := range names {
			r.observer.TaskFinished(name, StatusSkipped, 0, nil)
		}
	}
}

// load parses the merged file and replaces movies_ratings with it.
// Parsing happens before connecting so bad input never touches the table.
func (r *Runner) load(ctx context.Context, cfg moviepipe.PipelineConfig, mergedPath string) (int, error) {
	records, err := warehouse.ReadMerged(r.fsys, mergedPath)
	if err != nil {
		return 0, err
	}

	store, err := r.openStore(ctx, cfg.Warehouse, r.logger)
	if err != nil {
		return 0, err
	}
	defer r.closeStore(store)

	n, err := store.ReplaceTable(ctx, records)
	if err != nil {
		return 0, err
	}
	r.logger.Info("Loaded %d rows into %s", n, moviepipe.TableName)
	return n, nil
}

func (r *Runner) analyze(ctx context.Context, cfg moviepipe.PipelineConfig) ([]moviepipe.TitleAverage, error) {
	store, err := r.openStore(ctx, cfg.Warehouse, r.logger)
	if err != nil {
		return nil, err
	}
	defer r.closeStore(store)

	top, err := store.TopRated(ctx, cfg.TopN)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Top %d movies by average rating:", cfg.TopN)
	for i, t := range top {
		r.logger.Info("%d. %s (%.2f)", i+1, t.Title, t.AverageRating)
	}
	return top, nil
}

func (r *Runner) cleanup(cfg moviepipe.PipelineConfig, ws *Workspace) {
	if cfg.KeepIntermediate {
		r.logger.Info("Keeping intermediate files in %s", cfg.TmpDir)
		return
	}
	removed := ws.Cleanup()
	r.logger.Verbose("Removed %d intermediate files", len(removed))
}

func (r *Runner) closeStore(store warehouse.Store) {
	if err := store.Close(); err != nil {
		r.logger.Error("Failed to close warehouse connection: %v", err)
	}
}

// Analyze runs only the analysis task against the existing table.
func (r *Runner) Analyze(ctx context.Context, cfg moviepipe.PipelineConfig) ([]moviepipe.TitleAverage, error) {
	if err := cfg.ValidateAnalysis(); err != nil {
		return nil, err
	}
	var top []moviepipe.TitleAverage
	err := r.runTask(ctx, task{name: TaskAnalysis, fn: func(ctx context.Context) error {
		var err error
		top, err = r.analyze(ctx, cfg)
		return err
	}})
	return top, err
}

// Clean runs only the cleanup task and returns the files it removed.
func (r *Runner) Clean(ctx context.Context, cfg moviepipe.PipelineConfig) ([]string, error) {
	if err := cfg.ValidateCleanup(); err != nil {
		return nil, err
	}
	var removed []string
	err := r.runTask(ctx, task{name: TaskCleanup, fn: func(context.Context) error {
		removed = NewWorkspace(r.fsys, cfg.TmpDir, r.logger).Cleanup()
		return nil
	}})
	return removed, err
}
