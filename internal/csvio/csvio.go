// Package csvio reads and writes the header-first CSV files exchanged between
// pipeline tasks. Cells are kept as text so that columns a task does not
// inspect pass through unchanged.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

const utf8BOM = "\ufeff"

// Table is a fully loaded CSV file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	return ColumnIndex(t.Header, name)
}

// ColumnIndex returns the index of name in header, or -1.
func ColumnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// RequireColumns returns the index of each name, failing with ErrMalformedInput
// on the first one that is absent.
func RequireColumns(path string, header []string, names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = ColumnIndex(header, name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%s: missing column %q: %w", path, name, moviepipe.ErrMalformedInput)
		}
	}
	return idx, nil
}

// Cell returns row[i] and whether the row is long enough to have it.
func Cell(row []string, i int) (string, bool) {
	if i < 0 || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// Reader streams data rows from a CSV file after consuming its header.
type Reader struct {
	path   string
	rc     io.ReadCloser
	r      *csv.Reader
	header []string
}

// Open opens path and reads the header row.
// A missing file keeps fs.ErrNotExist in the chain; an empty file or bad
// syntax is reported as ErrMalformedInput.
func Open(fsys filesystem.FileSystem, path string) (*Reader, error) {
	rc, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		rc.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: no header row: %w", path, moviepipe.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%s: %w: %v", path, moviepipe.ErrMalformedInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	return &Reader{path: path, rc: rc, r: r, header: header}, nil
}

// Header returns the column names.
func (r *Reader) Header() []string {
	return r.header
}

// Read returns the next data row, or io.EOF after the last one.
// Rows may be shorter than the header (missing trailing cells) but not longer.
func (r *Reader) Read() ([]string, error) {
	row, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: %w: %v", r.path, moviepipe.ErrMalformedInput, err)
	}
	if len(row) > len(r.header) {
		line, _ := r.r.FieldPos(0)
		return nil, fmt.Errorf("%s:%d: row has %d fields, header has %d: %w",
			r.path, line, len(row), len(r.header), moviepipe.ErrMalformedInput)
	}
	return row, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.rc.Close()
}

// Writer writes a CSV file row by row.
type Writer struct {
	path string
	wc   io.WriteCloser
	w    *csv.Writer
	rows int
}

// Create creates path and writes header.
func Create(fsys filesystem.FileSystem, path string, header []string) (*Writer, error) {
	wc, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	w := &Writer{path: path, wc: wc, w: csv.NewWriter(wc)}
	if err := w.w.Write(header); err != nil {
		wc.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return w, nil
}

// Write appends one data row.
func (w *Writer) Write(row []string) error {
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	w.w.Flush()
	flushErr := w.w.Error()
	closeErr := w.wc.Close()
	if flushErr != nil {
		return fmt.Errorf("write %s: %w", w.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", w.path, closeErr)
	}
	return nil
}

// ReadAll loads an entire CSV file.
func ReadAll(fsys filesystem.FileSystem, path string) (*Table, error) {
	r, err := Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t := &Table{Header: r.Header()}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
}

// WriteAll writes t to path, replacing any existing file.
func WriteAll(fsys filesystem.FileSystem, path string, t *Table) error {
	w, err := Create(fsys, path, t.Header)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
