package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates Store entries when artifact files in a directory
// change.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching dir. Events are processed by Run.
func NewWatcher(store *Store, dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("metadata: watch: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("metadata: watch %s: %w", dir, err)
	}
	return &Watcher{store: store, watcher: w}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if _, ok := FormatOf(event.Name); !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			table := strings.TrimSuffix(base, filepath.Ext(base))
			w.store.logger.Debug("metadata artifact changed", "table", table, "op", event.Op.String())
			if err := w.store.Invalidate(ctx, table); err != nil {
				w.store.logger.Warn("metadata invalidate failed", "table", table, "error", err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.store.logger.Error("metadata watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
