package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/moviepipe/moviepipe/internal/config"
	"github.com/moviepipe/moviepipe/internal/db"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// pipelineFlags holds the flag values shared by run, schedule, analyze and clean.
type pipelineFlags struct {
	rawDir           string
	tmpDir           string
	driver           string
	sqlitePath       string
	connection       string
	insertMode       string
	minRating        float64
	topN             int
	timeout          time.Duration
	keepIntermediate bool
	s3Bucket         string
	s3Prefix         string
	s3Endpoint       string
}

var pipeFlags pipelineFlags

func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&pipeFlags.rawDir, "raw-dir", moviepipe.DefaultRawDir, "Directory holding movies.csv and ratings.csv")
	f.StringVar(&pipeFlags.tmpDir, "tmp-dir", moviepipe.DefaultTmpDir, "Scratch directory for intermediate CSV files")
	f.StringVar(&pipeFlags.driver, "driver", moviepipe.DriverPostgres, "Warehouse driver: postgres or sqlite")
	f.StringVar(&pipeFlags.sqlitePath, "sqlite-path", "", "SQLite database file (sqlite driver)")
	f.StringVar(&pipeFlags.connection, "connection", "", "PostgreSQL connection string (postgres driver)")
	f.StringVar(&pipeFlags.insertMode, "insert-mode", moviepipe.InsertModeCopy, "PostgreSQL insert mode: copy or batch")
	f.Float64Var(&pipeFlags.minRating, "min-rating", moviepipe.DefaultMinRating, "Ratings must be strictly greater than this to survive cleaning")
	f.IntVar(&pipeFlags.topN, "top-n", moviepipe.DefaultTopN, "Number of titles reported by the analysis task")
	f.DurationVar(&pipeFlags.timeout, "timeout", moviepipe.DefaultRunTimeout, "Timeout for a single run")
	f.BoolVar(&pipeFlags.keepIntermediate, "keep-intermediate", false, "Leave intermediate files in the tmp dir")
	f.StringVar(&pipeFlags.s3Bucket, "s3-bucket", "", "Fetch raw files from this S3 bucket before ingest")
	f.StringVar(&pipeFlags.s3Prefix, "s3-prefix", "", "Key prefix of the raw files in the S3 bucket")
	f.StringVar(&pipeFlags.s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
}

// layered resolves one setting from, in order: an explicitly set flag, a
// MOVIEPIPE_* environment variable, moviepipe.yaml, the built-in default.
type layered struct {
	cmd *cobra.Command
}

func (l layered) flagSet(name string) bool {
	return name != "" && l.cmd.Flags().Changed(name)
}

func (l layered) str(flag, flagVal, envKey, fileVal, def string) string {
	if l.flagSet(flag) {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func (l layered) integer(flag string, flagVal int, envKey string, fileVal, def int) (int, error) {
	if l.flagSet(flag) {
		return flagVal, nil
	}
	if v := os.Getenv(envKey); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, moviepipe.ErrInvalidConfig)
		}
		return n, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return def, nil
}

func (l layered) float(flag string, flagVal float64, envKey string, fileVal *float64, def float64) (float64, error) {
	if l.flagSet(flag) {
		return flagVal, nil
	}
	if v := os.Getenv(envKey); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, moviepipe.ErrInvalidConfig)
		}
		return f, nil
	}
	if fileVal != nil {
		return *fileVal, nil
	}
	return def, nil
}

func (l layered) boolean(flag string, flagVal bool, envKey string, fileVal bool) (bool, error) {
	if l.flagSet(flag) {
		return flagVal, nil
	}
	if v := os.Getenv(envKey); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("invalid %s %q: %w", envKey, v, moviepipe.ErrInvalidConfig)
		}
		return b, nil
	}
	return fileVal, nil
}

func (l layered) duration(flag string, flagVal time.Duration, envKey, fileVal string, def time.Duration) (time.Duration, error) {
	if l.flagSet(flag) {
		return flagVal, nil
	}
	raw, source := os.Getenv(envKey), envKey
	if raw == "" {
		raw, source = fileVal, config.ConfigFileName
	}
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout in %s: %w: %v", source, moviepipe.ErrInvalidConfig, err)
	}
	return d, nil
}

// loadProjectConfig loads godotenv and project configuration.
// Returns an empty config if no moviepipe.yaml exists and --config was not given.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("MOVIEPIPE_CONFIG")
	}

	if path == "" {
		projectCfg, err := config.LoadFromDir(".")
		if errors.Is(err, config.ErrConfigNotFound) {
			return &config.ProjectConfig{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
		}
		return projectCfg, nil
	}

	projectCfg, err := config.Load(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("config file %s not found: %w", path, moviepipe.ErrInvalidConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return projectCfg, nil
}

// configScope selects which settings a command validates.
type configScope int

const (
	scopeRun      configScope = iota // every task
	scopeAnalysis                    // warehouse and report size
	scopeCleanup                     // tmp dir only
)

// buildPipelineConfig assembles the run configuration for cmd and validates
// the part of it that scope uses. The loaded project config is returned as
// well for command-specific sections.
func buildPipelineConfig(cmd *cobra.Command, scope configScope) (moviepipe.PipelineConfig, *config.ProjectConfig, error) {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return moviepipe.PipelineConfig{}, nil, err
	}

	l := layered{cmd: cmd}
	cfg := moviepipe.PipelineConfig{
		RawDir:  l.str("raw-dir", pipeFlags.rawDir, "MOVIEPIPE_RAW_DIR", projectCfg.Paths.RawDir, moviepipe.DefaultRawDir),
		TmpDir:  l.str("tmp-dir", pipeFlags.tmpDir, "MOVIEPIPE_TMP_DIR", projectCfg.Paths.TmpDir, moviepipe.DefaultTmpDir),
		Verbose: getVerboseFlag(cmd),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.MinRating, err = l.float("min-rating", pipeFlags.minRating, "MOVIEPIPE_MIN_RATING", projectCfg.Transform.MinRating, moviepipe.DefaultMinRating)
	collect(err)
	cfg.TopN, err = l.integer("top-n", pipeFlags.topN, "MOVIEPIPE_TOP_N", projectCfg.Analysis.TopN, moviepipe.DefaultTopN)
	collect(err)
	cfg.Timeout, err = l.duration("timeout", pipeFlags.timeout, "MOVIEPIPE_TIMEOUT", projectCfg.Run.Timeout, moviepipe.DefaultRunTimeout)
	collect(err)
	cfg.KeepIntermediate, err = l.boolean("keep-intermediate", pipeFlags.keepIntermediate, "MOVIEPIPE_KEEP_INTERMEDIATE", projectCfg.Run.KeepIntermediate)
	collect(err)

	wh := &cfg.Warehouse
	wh.Driver = l.str("driver", pipeFlags.driver, "MOVIEPIPE_DRIVER", projectCfg.Warehouse.Driver, moviepipe.DriverPostgres)
	wh.SQLitePath = l.str("sqlite-path", pipeFlags.sqlitePath, "MOVIEPIPE_SQLITE_PATH", projectCfg.Warehouse.SQLitePath, "")
	wh.InsertMode = l.str("insert-mode", pipeFlags.insertMode, "MOVIEPIPE_INSERT_MODE", projectCfg.Load.InsertMode, moviepipe.InsertModeCopy)
	wh.BatchSize, err = l.integer("", 0, "MOVIEPIPE_BATCH_SIZE", projectCfg.Load.BatchSize, moviepipe.DefaultBatchSize)
	collect(err)
	wh.RetryAttempts, err = l.integer("", 0, "MOVIEPIPE_RETRY_ATTEMPTS", projectCfg.Warehouse.RetryAttempts, moviepipe.DefaultRetryMaxAttempts)
	collect(err)

	if wh.Driver == moviepipe.DriverPostgres && scope != scopeCleanup {
		conn, err := db.ResolveConnection(pipeFlags.connection, db.LoadFromEnvironment(), &projectCfg.Connection)
		if err != nil {
			collect(fmt.Errorf("%w: %w", moviepipe.ErrInvalidConfig, err))
		} else {
			wh.Connection = conn
		}
	}

	s3 := projectCfg.Source.S3
	cfg.Source = moviepipe.SourceConfig{
		Bucket:   l.str("s3-bucket", pipeFlags.s3Bucket, "MOVIEPIPE_S3_BUCKET", s3.Bucket, ""),
		Prefix:   l.str("s3-prefix", pipeFlags.s3Prefix, "MOVIEPIPE_S3_PREFIX", s3.Prefix, ""),
		Endpoint: l.str("s3-endpoint", pipeFlags.s3Endpoint, "MOVIEPIPE_S3_ENDPOINT", s3.Endpoint, ""),
		Region:   l.str("", "", "MOVIEPIPE_S3_REGION", s3.Region, ""),
	}
	cfg.Source.PathStyle, err = l.boolean("", false, "MOVIEPIPE_S3_PATH_STYLE", s3.PathStyle)
	collect(err)

	if len(errs) > 0 {
		return moviepipe.PipelineConfig{}, nil, errors.Join(errs...)
	}
	switch scope {
	case scopeAnalysis:
		err = cfg.ValidateAnalysis()
	case scopeCleanup:
		err = cfg.ValidateCleanup()
	default:
		err = cfg.Validate()
	}
	if err != nil {
		return moviepipe.PipelineConfig{}, nil, err
	}
	return cfg, projectCfg, nil
}
