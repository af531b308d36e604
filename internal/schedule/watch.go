package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// DefaultDebounce is how long the raw directory must be quiet before a
// change triggers a run. Upstream writers often touch a file several times.
const DefaultDebounce = 2 * time.Second

// Watcher triggers a Scheduler when the raw source files are created or rewritten.
type Watcher struct {
	dir      string
	names    []string
	debounce time.Duration
	sched    *Scheduler
	logger   moviepipe.Logger
}

// NewWatcher watches dir for changes to the named files.
func NewWatcher(dir string, names []string, debounce time.Duration, sched *Scheduler, logger moviepipe.Logger) *Watcher {
	return &Watcher{dir: dir, names: names, debounce: debounce, sched: sched, logger: logger}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching %s for new source files", w.dir)

	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Verbose("Source change: %s", ev)
			quiet.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error: %v", err)

		case <-quiet.C:
			if !w.sched.Trigger("source change") {
				w.logger.Verbose("Run already requested, ignoring source change")
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(w.names, filepath.Base(ev.Name))
}
