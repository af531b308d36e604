package transform

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// CleanMovies copies src to dst, dropping every row whose title is null.
// A title is null when the cell is missing from a short row or is blank.
// All columns and the row order are preserved. It returns the number of rows kept.
func CleanMovies(ctx context.Context, fsys filesystem.FileSystem, src, dst string) (int, error) {
	r, err := openInput(fsys, src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	idx, err := csvio.RequireColumns(src, r.Header(), moviepipe.ColumnTitle)
	if err != nil {
		return 0, err
	}
	titleIdx := idx[0]

	w, err := csvio.Create(fsys, dst, r.Header())
	if err != nil {
		return 0, err
	}

	for n := 1; ; n++ {
		if err := checkContext(ctx, n); err != nil {
			w.Close()
			return 0, err
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Close()
			return 0, err
		}

		if !hasTitle(row, titleIdx) {
			continue
		}
		if err := w.Write(row); err != nil {
			w.Close()
			return 0, err
		}
	}

	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Rows(), nil
}

func hasTitle(row []string, titleIdx int) bool {
	title, ok := csvio.Cell(row, titleIdx)
	return ok && strings.TrimSpace(title) != ""
}
