// Package source implements the ingest tasks: it locates movies.csv and
// ratings.csv in the raw directory, optionally downloading them from S3 first.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Fetcher places a named raw file into a local directory.
type Fetcher interface {
	Fetch(ctx context.Context, name, dir string) error
}

// Reader resolves raw source files.
type Reader struct {
	fsys    filesystem.FileSystem
	rawDir  string
	fetcher Fetcher
	logger  moviepipe.Logger
}

// NewReader creates a Reader over rawDir. fetcher may be nil, in which case
// the files must already be present.
func NewReader(fsys filesystem.FileSystem, rawDir string, fetcher Fetcher, logger moviepipe.Logger) *Reader {
	return &Reader{fsys: fsys, rawDir: rawDir, fetcher: fetcher, logger: logger}
}

// Movies returns the path of movies.csv.
func (r *Reader) Movies(ctx context.Context) (string, error) {
	return r.Ingest(ctx, moviepipe.MoviesFile)
}

// Ratings returns the path of ratings.csv.
func (r *Reader) Ratings(ctx context.Context) (string, error) {
	return r.Ingest(ctx, moviepipe.RatingsFile)
}

// Ingest returns the path of the raw file name, fetching it first when a
// Fetcher is configured. A file that does not exist is ErrSourceMissing.
func (r *Reader) Ingest(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if r.fetcher != nil {
		if err := r.fsys.MkdirAll(r.rawDir, 0o755); err != nil {
			return "", fmt.Errorf("create raw dir %s: %w", r.rawDir, err)
		}
		if err := r.fetcher.Fetch(ctx, name, r.rawDir); err != nil {
			return "", err
		}
	}

	path := filepath.Join(r.rawDir, name)
	info, err := r.fsys.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, moviepipe.ErrSourceMissing)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, moviepipe.ErrSourceMissing)
	}

	r.logger.Verbose("Found %s (%d bytes)", path, info.Size())
	return path, nil
}
