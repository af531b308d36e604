package warehouse

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// ReadMerged parses merged_data.csv into records. Every row is validated
// before it is returned, so a bad numeric cell fails before any DDL runs.
func ReadMerged(fsys filesystem.FileSystem, path string) ([]moviepipe.MergedRecord, error) {
	r, err := csvio.Open(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", moviepipe.ErrSourceMissing, err)
		}
		return nil, err
	}
	defer r.Close()

	idx, err := csvio.RequireColumns(path, r.Header(),
		moviepipe.ColumnUserID,
		moviepipe.ColumnMovieID,
		moviepipe.ColumnRating,
		moviepipe.ColumnTimestamp,
		moviepipe.ColumnTitle,
		moviepipe.ColumnGenres,
	)
	if err != nil {
		return nil, err
	}

	var records []moviepipe.MergedRecord
	for n := 1; ; n++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		rec, err := parseMergedRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: data row %d: %w", path, n, err)
		}
		records = append(records, rec)
	}
}

func parseMergedRow(row []string, idx []int) (moviepipe.MergedRecord, error) {
	var rec moviepipe.MergedRecord
	var err error

	if rec.UserID, err = parseInt(row, idx[0], moviepipe.ColumnUserID); err != nil {
		return rec, err
	}
	if rec.MovieID, err = parseInt(row, idx[1], moviepipe.ColumnMovieID); err != nil {
		return rec, err
	}
	cell, _ := csvio.Cell(row, idx[2])
	if rec.Rating, err = strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
		return rec, fmt.Errorf("%s %q is not a number: %w", moviepipe.ColumnRating, cell, moviepipe.ErrMalformedInput)
	}
	if rec.Timestamp, err = parseInt(row, idx[3], moviepipe.ColumnTimestamp); err != nil {
		return rec, err
	}
	rec.Title, _ = csvio.Cell(row, idx[4])
	rec.Genres, _ = csvio.Cell(row, idx[5])
	return rec, nil
}

func parseInt(row []string, i int, column string) (int64, error) {
	cell, _ := csvio.Cell(row, i)
	v, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer: %w", column, cell, moviepipe.ErrMalformedInput)
	}
	return v, nil
}
