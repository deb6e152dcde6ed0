package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the input watcher.
type WatcherConfig struct {
	// Patterns are the input paths or globs to watch. They are
	// re-expanded for every batch, so files appearing later under a glob
	// join the input set.
	Patterns []string

	// Debounce is how long to wait for more changes before emitting a
	// batch.
	Debounce time.Duration

	// Logger for watch events.
	Logger *slog.Logger
}

// Watcher observes the directories holding the input files and emits a
// batch of changed paths after each quiet period. Watch mode never
// updates shapes incrementally; every batch is a signal to rescan the
// whole input from the beginning.
type Watcher struct {
	config  WatcherConfig
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]struct{}

	batches chan []string
}

// NewWatcher creates a watcher over the given input patterns.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 2 * time.Second
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]struct{}),
		batches: make(chan []string, 4),
	}, nil
}

// Batches returns the channel of change batches. Each batch lists the
// paths that changed since the previous one.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Start resolves the patterns, adds watches on the directories holding
// the matched files, and begins emitting batches until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	paths, err := ExpandInputs(w.config.Patterns)
	if err != nil {
		return err
	}
	if err := w.addWatches(paths); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Input watcher started",
		"files", len(paths),
		"debounce", w.config.Debounce)
	return nil
}

// Stop stops the watcher and closes the batch channel.
func (w *Watcher) Stop() error {
	close(w.batches)
	return w.watcher.Close()
}

// addWatches watches the parent directory of every input file.
// Directories are watched instead of the files themselves so that
// replace-by-rename (the usual way graph dumps are refreshed) keeps
// being observed.
func (w *Watcher) addWatches(paths []string) error {
	dirs := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.logger.Debug("Watching directory", "path", dir)
	}
	return nil
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent records a single fsnotify event when it concerns one of
// the watched inputs.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	// New directories under a watched tree get their own watch so glob
	// inputs pick up files created inside them.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if !w.matches(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("Input change detected",
		"path", path,
		"op", event.Op.String())
}

// matches reports whether path belongs to the watched input set: either
// one of the configured plain paths or a match for one of the globs.
func (w *Watcher) matches(path string) bool {
	for _, pattern := range w.config.Patterns {
		if pattern == path {
			return true
		}
		if ok, err := doublestar.PathMatch(filepath.ToSlash(pattern), filepath.ToSlash(path)); err == nil && ok {
			return true
		}
	}
	return false
}

// flushPending emits the accumulated changes as one batch.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	select {
	case w.batches <- batch:
		w.logger.Debug("Emitted change batch", "paths", len(batch))
	default:
		// A batch is already queued; the pending rescan covers these
		// changes too.
		w.logger.Debug("Change batch coalesced", "paths", len(batch))
	}
}
