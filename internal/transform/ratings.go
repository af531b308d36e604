package transform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// CleanRatings copies src to dst, keeping only rows whose rating is strictly
// greater than minRating. A missing or blank rating never passes; a rating
// that is not a number is malformed input. It returns the number of rows kept.
func CleanRatings(ctx context.Context, fsys filesystem.FileSystem, src, dst string, minRating float64) (int, error) {
	r, err := openInput(fsys, src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	idx, err := csvio.RequireColumns(src, r.Header(), moviepipe.ColumnRating)
	if err != nil {
		return 0, err
	}
	ratingIdx := idx[0]

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

		rating, ok, err := parseRating(row, ratingIdx)
		if err != nil {
			w.Close()
			return 0, fmt.Errorf("%s: data row %d: %w", src, n, err)
		}
		if !ok || !(rating > minRating) {
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

// parseRating returns the rating cell as a number. ok is false for a null cell.
func parseRating(row []string, ratingIdx int) (rating float64, ok bool, err error) {
	cell, present := csvio.Cell(row, ratingIdx)
	cell = strings.TrimSpace(cell)
	if !present || cell == "" {
		return 0, false, nil
	}

	rating, err = strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, fmt.Errorf("rating %q is not a number: %w", cell, moviepipe.ErrMalformedInput)
	}
	return rating, true, nil
}
