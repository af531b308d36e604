package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Workspace is the scratch directory holding the intermediate CSV files.
type Workspace struct {
	fsys   filesystem.FileSystem
	dir    string
	logger moviepipe.Logger
}

// NewWorkspace creates a Workspace rooted at dir.
func NewWorkspace(fsys filesystem.FileSystem, dir string, logger moviepipe.Logger) *Workspace {
	return &Workspace{fsys: fsys, dir: dir, logger: logger}
}

// Path returns the location of an intermediate file.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Prepare creates the directory and any missing parents.
func (w *Workspace) Prepare() error {
	if err := w.fsys.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir %s: %w", w.dir, err)
	}
	w.logger.Verbose("Tmp dir %s ready", w.dir)
	return nil
}

// Cleanup removes the intermediate files and returns the ones it deleted.
// Files that are already gone are skipped. Other failures are logged and do
// not stop the remaining deletions.
func (w *Workspace) Cleanup() []string {
	var removed []string
	for _, name := range moviepipe.IntermediateFiles() {
		p := w.Path(name)
		err := w.fsys.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
			w.logger.Verbose("Removed %s", p)
		case errors.Is(err, fs.ErrNotExist):
			w.logger.Verbose("%s already absent", p)
		default:
			w.logger.Error("Failed to remove %s: %v", p, err)
		}
	}
	return removed
}
