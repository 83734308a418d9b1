package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long the file must stay quiet before a reload.
const DefaultSettle = 250 * time.Millisecond

// Watcher republishes the catalog when its file changes on disk. Bursts of
// events, such as an editor writing in several steps, collapse into one
// reload once the file has been quiet for the settle window.
type Watcher struct {
	catalog *Catalog
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	settle  time.Duration
}

type WatcherOption func(*Watcher)

func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// NewWatcher prepares a watcher for path. The parent directory is watched so
// editors that replace the file by rename are still seen.
func NewWatcher(c *Catalog, path string, logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cw := &Watcher{catalog: c, path: abs, logger: logger, watcher: w, settle: DefaultSettle}
	for _, opt := range opts {
		opt(cw)
	}
	return cw, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WarnContext(ctx, "catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	questions, err := LoadFile(w.path)
	if err != nil {
		w.logger.WarnContext(ctx, "catalog reload skipped", "path", w.path, "error", err)
		return
	}
	if err := w.catalog.Publish(questions); err != nil {
		w.logger.ErrorContext(ctx, "catalog reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger.InfoContext(ctx, "catalog reloaded",
		"path", w.path,
		"questions", len(questions),
		"version", w.catalog.Version(),
	)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
