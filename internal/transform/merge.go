package transform

import (
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Suffixes appended to a non-key column name present in both inputs.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// Merge inner-joins ratingsPath with moviesPath on movieId and writes the result to dst.
//
// The output header is every ratings column followed by every movies column
// except movieId. Rows follow the ratings order, and for each rating the
// matching movies follow the movies order. Ratings without a movie and movies
// without ratings are dropped. It returns the number of rows written.
func Merge(ctx context.Context, fsys filesystem.FileSystem, ratingsPath, moviesPath, dst string) (int, error) {
	movies, movieKeyIdx, err := loadMovies(fsys, moviesPath)
	if err != nil {
		return 0, err
	}
	index := indexByKey(movies.Rows, movieKeyIdx)

	r, err := openInput(fsys, ratingsPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	idx, err := csvio.RequireColumns(ratingsPath, r.Header(), moviepipe.ColumnMovieID)
	if err != nil {
		return 0, err
	}
	ratingKeyIdx := idx[0]

	header, movieCols := mergedHeader(r.Header(), movies.Header, movieKeyIdx)
	leftWidth := len(r.Header())

	w, err := csvio.Create(fsys, dst, header)
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

		key, ok := joinKey(row, ratingKeyIdx)
		if !ok {
			continue
		}
		matches := index[key]
		if len(matches) == 0 {
			continue
		}
		left := pad(row, leftWidth)
		if canon, isInt := strings.CutPrefix(key, intKeyPrefix); isInt && !isIntCell(left[ratingKeyIdx]) {
			// "7.0" is written as 7 so the loader reads an integer id
			left = append([]string(nil), left...)
			left[ratingKeyIdx] = canon
		}
		for _, m := range matches {
			out := make([]string, 0, len(header))
			out = append(out, left...)
			for _, c := range movieCols {
				cell, _ := csvio.Cell(movies.Rows[m], c)
				out = append(out, cell)
			}
			if err := w.Write(out); err != nil {
				w.Close()
				return 0, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Rows(), nil
}

func loadMovies(fsys filesystem.FileSystem, path string) (*csvio.Table, int, error) {
	r, err := openInput(fsys, path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	idx, err := csvio.RequireColumns(path, r.Header(), moviepipe.ColumnMovieID)
	if err != nil {
		return nil, 0, err
	}

	t := &csvio.Table{Header: r.Header()}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return t, idx[0], nil
		}
		if err != nil {
			return nil, 0, err
		}
		t.Rows = append(t.Rows, row)
	}
}

// indexByKey maps each join key to the row indexes holding it, in file order.
func indexByKey(rows [][]string, keyIdx int) map[string][]int {
	index := make(map[string][]int, len(rows))
	for i, row := range rows {
		if key, ok := joinKey(row, keyIdx); ok {
			index[key] = append(index[key], i)
		}
	}
	return index
}

const intKeyPrefix = "i:"

func isIntCell(cell string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
	return err == nil
}

// joinKey normalises a movieId cell. Integers compare by value, so "007",
// "7" and "7.0" all join; anything else compares as trimmed text. Blank keys
// never join.
func joinKey(row []string, keyIdx int) (string, bool) {
	cell, ok := csvio.Cell(row, keyIdx)
	cell = strings.TrimSpace(cell)
	if !ok || cell == "" {
		return "", false
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return intKeyPrefix + strconv.FormatInt(n, 10), true
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < math.MaxInt64 {
		return intKeyPrefix + strconv.FormatInt(int64(f), 10), true
	}
	return "s:" + cell, true
}

// mergedHeader builds the output header and the movies column indexes that
// follow the ratings columns.
func mergedHeader(left, right []string, rightKeyIdx int) ([]string, []int) {
	rightCols := make([]int, 0, len(right))
	rightNames := make(map[string]bool, len(right))
	for i, name := range right {
		if i == rightKeyIdx {
			continue
		}
		rightCols = append(rightCols, i)
		rightNames[name] = true
	}

	leftNames := make(map[string]bool, len(left))
	header := make([]string, 0, len(left)+len(rightCols))
	for _, name := range left {
		leftNames[name] = true
		if name != moviepipe.ColumnMovieID && rightNames[name] {
			name += LeftSuffix
		}
		header = append(header, name)
	}
	for _, i := range rightCols {
		name := right[i]
		if leftNames[name] {
			name += RightSuffix
		}
		header = append(header, name)
	}
	return header, rightCols
}

// pad extends a short row with empty cells.
func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
