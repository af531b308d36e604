package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystem is the set of file operations the pipeline tasks need.
//
// Missing paths are reported with errors that satisfy errors.Is(err, fs.ErrNotExist)
// in every implementation.
type FileSystem interface {
	// Open opens the named file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates the named file for writing.
	// The parent directory must exist.
	Create(path string) (io.WriteCloser, error)

	// MkdirAll creates a directory and any missing parents. Existing directories are not an error.
	MkdirAll(path string, perm fs.FileMode) error

	// Remove deletes the named file.
	Remove(path string) error

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}
