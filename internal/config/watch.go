package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// catalogDebounce coalesces the burst of events an editor save produces.
const catalogDebounce = 100 * time.Millisecond

// WatchCatalog calls onChange with the freshly parsed catalog each time the
// file at path is written, created or renamed into place. Parse errors are
// logged and the previous catalog stays in effect. WatchCatalog blocks until
// ctx is done.
func WatchCatalog(ctx context.Context, path string, logger *slog.Logger, onChange func(*Catalog)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(catalogDebounce)
			} else {
				timer.Reset(catalogDebounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			cat, err := LoadCatalog(path)
			if err != nil {
				logger.Warn("catalog reload failed", "path", path, "err", err)
				continue
			}
			logger.Info("catalog reloaded", "path", path, "schemas", len(cat.Schemas))
			onChange(cat)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", "path", path, "err", err)
		}
	}
}
