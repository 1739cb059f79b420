// Package watch reloads the settings store when the settings file is
// changed outside the process.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/scribe/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Refresher reloads settings from the backend.
type Refresher interface {
	RefreshSettings(ctx context.Context) error
}

// Watcher triggers a refresh whenever the watched file changes.
type Watcher struct {
	path     string
	target   Refresher
	debounce time.Duration
	log      logger.Component
}

// New creates a watcher for path. A non-positive debounce uses
// DefaultDebounce.
func New(path string, target Refresher, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		target:   target,
		debounce: debounce,
		log:      logger.Component("watch"),
	}
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file so that editors which replace the file on save are
// still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.log.Debug("watching %s", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error: %v", err)

		case <-timer.C:
			if err := w.target.RefreshSettings(ctx); err != nil {
				w.log.Warn("reloading settings: %v", err)
				continue
			}
			w.log.Debug("reloaded settings after change to %s", w.path)
		}
	}
}

// walSuffix names the write-ahead log SQLite keeps next to a database in
// WAL mode. Commits land there until a checkpoint.
const walSuffix = "-wal"

// relevant reports whether event touches the watched file, or its
// write-ahead log, in a way that may change its content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)
	if name != w.path && name != w.path+walSuffix {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
