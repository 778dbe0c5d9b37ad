// Package watcher keeps the index in step with the working tree. It
// watches every non-ignored directory below the project root with
// fsnotify and, once a path has been quiet for the debounce interval,
// re-indexes it or removes it from the index.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/extractor"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/walker"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
)

type Indexer interface {
	UpdateFile(path string) error
	RemoveFile(path string) error
	Files() ([]string, error)
}

type Tracker interface {
	Track(event any)
}

type Options struct {
	Walker   walker.Options
	Debounce time.Duration
	Metrics  *metrics.Metrics
	Tracker  Tracker
}

type Watcher struct {
	root     string
	ix       Indexer
	walker   *walker.Walker
	fsw      *fsnotify.Watcher
	debounce time.Duration
	metrics  *metrics.Metrics
	tracker  Tracker
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

func New(root string, ix Indexer, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	return &Watcher{
		root:     abs,
		ix:       ix,
		walker:   walker.New(abs, opts.Walker),
		fsw:      fsw,
		debounce: opts.Debounce,
		metrics:  opts.Metrics,
		tracker:  opts.Tracker,
		logger:   slog.Default().With("component", "watcher", "root", abs),
		pending:  make(map[string]time.Time),
		now:      time.Now,
	}, nil
}

// Run watches until ctx is cancelled. Changes still waiting for their
// debounce interval at that point are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.logger.Info("watching for file changes", "debounce", w.debounce)

	ticker := time.NewTicker(max(w.debounce/2, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.walker.Ignored(path, true) {
				return
			}
			if err := w.addRecursive(path); err != nil {
				w.logger.Warn("cannot watch new directory", "path", path, "error", err)
			}
			// Files may have landed before the watch was in place.
			w.scheduleTree(path)
			return
		}
	}
	if w.walker.Ignored(path, false) {
		return
	}
	w.schedule(path)
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	w.pending[path] = w.now()
	w.mu.Unlock()
}

func (w *Watcher) scheduleTree(dir string) {
	sub := walker.New(dir, walker.Options{IncludeHidden: true})
	err := sub.Walk(func(path string, info fs.FileInfo) error {
		if !w.walker.Ignored(path, false) {
			w.schedule(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Debug("cannot scan new directory", "path", dir, "error", err)
	}
}

// flush applies every path that has been quiet for the debounce interval.
// What is on disk decides the action, so an editor's write-then-rename
// save ends as a single update.
func (w *Watcher) flush() {
	now := w.now()
	var due []string
	w.mu.Lock()
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.debounce {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range due {
		w.apply(path)
	}
}

func (w *Watcher) apply(path string) {
	start := time.Now()
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		if _, ok := extractor.DetectLanguage(path); !ok {
			return
		}
		w.record("update", path, start, w.ix.UpdateFile(path))
	case err == nil:
		return
	default:
		w.removeTree(path, start)
	}
}

// removeTree removes path and, if it was a directory, every indexed file
// below it.
func (w *Watcher) removeTree(path string, start time.Time) {
	files, err := w.ix.Files()
	if err != nil {
		w.record("remove", path, start, err)
		return
	}
	prefix := path + string(filepath.Separator)
	for _, f := range files {
		if f == path || strings.HasPrefix(f, prefix) {
			w.record("remove", f, start, w.ix.RemoveFile(f))
		}
	}
}

func (w *Watcher) record(op, path string, start time.Time, err error) {
	if err != nil {
		w.logger.Error("applying file change failed", "op", op, "path", path, "error", err)
		return
	}
	w.metrics.FileEvent("watcher", op)
	if w.tracker != nil {
		w.tracker.Track(analytics.IndexEvent{
			Type:      analytics.EventIndex,
			Op:        op,
			Source:    "watcher",
			Path:      path,
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		})
	}
	w.logger.Debug("file change applied", "op", op, "path", path)
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.walker.Ignored(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}
