// Package watch re-imports configured issue files when they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/antigravity-dev/beadsmap/internal/beads"
)

// DefaultDebounce is how long a path must stay quiet before it is re-imported.
const DefaultDebounce = 500 * time.Millisecond

// Importer loads one file into a source.
type Importer interface {
	ImportFile(ctx context.Context, key, label, path string) error
}

// Target is a watched file and the source it feeds. A Path naming a .beads
// directory is watched through the issues.jsonl inside it.
type Target struct {
	Key   string
	Label string
	Path  string
}

// Watcher watches the directory of every target so atomic replaces
// (write to temp, rename over) are seen as well as in-place writes.
type Watcher struct {
	fs       *fsnotify.Watcher
	targets  []Target          // configured order
	byPath   map[string]Target // keyed by the watched file
	importer Importer
	debounce time.Duration
	logger   *slog.Logger
}

// New registers the targets' directories with fsnotify. The returned Watcher
// owns the underlying handle until Run returns.
func New(targets []Target, importer Importer, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if importer == nil {
		return nil, errors.New("watch: nil importer")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		targets:  make([]Target, 0, len(targets)),
		byPath:   make(map[string]Target, len(targets)),
		importer: importer,
		debounce: debounce,
		logger:   logger.With("component", "watch"),
	}

	dirs := make(map[string]struct{})
	for _, t := range targets {
		abs, err := filepath.Abs(t.Path)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: resolve %s: %w", t.Path, err)
		}
		t.Path = abs
		watched := abs
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			watched = beads.IssuesPath(abs)
		}
		if prev, dup := w.byPath[watched]; dup {
			fsw.Close()
			return nil, fmt.Errorf("watch: sources %q and %q both read %s", prev.Key, t.Key, watched)
		}
		w.byPath[watched] = t
		w.targets = append(w.targets, t)
		dirs[filepath.Dir(watched)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}
	return w, nil
}

// Targets returns the targets keyed by the absolute file path being watched.
func (w *Watcher) Targets() map[string]Target {
	out := make(map[string]Target, len(w.byPath))
	for k, v := range w.byPath {
		out[k] = v
	}
	return out
}

// Sync imports every target once, in the order given to New. Failures are joined; one bad file does not
// stop the others.
func (w *Watcher) Sync(ctx context.Context) error {
	var errs []error
	for _, t := range w.targets {
		if err := w.importer.ImportFile(ctx, t.Key, t.Label, t.Path); err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", t.Key, err))
		}
	}
	return errors.Join(errs...)
}

// Run dispatches debounced imports until ctx is cancelled. It closes the
// fsnotify handle before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	fire := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(ev.Name)
			if _, tracked := w.byPath[path]; !tracked {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if t, pending := timers[path]; pending {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				}
			})

		case path := <-fire:
			delete(timers, path)
			t := w.byPath[path]
			if err := w.importer.ImportFile(ctx, t.Key, t.Label, t.Path); err != nil {
				w.logger.Warn("re-import failed", "source", t.Key, "path", t.Path, "error", err)
				continue
			}
			w.logger.Info("source re-imported", "source", t.Key, "path", t.Path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
