package transform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// ctxCheckInterval is how many rows are processed between context checks.
const ctxCheckInterval = 4096

// openInput opens a stage input, reporting a missing file as ErrSourceMissing.
func openInput(fsys filesystem.FileSystem, path string) (*csvio.Reader, error) {
	r, err := csvio.Open(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", moviepipe.ErrSourceMissing, err)
		}
		return nil, err
	}
	return r, nil
}

// checkContext reports cancellation on the first row and every ctxCheckInterval rows after it.
func checkContext(ctx context.Context, row int) error {
	if (row-1)%ctxCheckInterval == 0 {
		return ctx.Err()
	}
	return nil
}
