package theme

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// thWatchDebounce collapses the burst of events an editor produces when it
// saves a file.
const thWatchDebounce = 50 * time.Millisecond

// Watch reloads the TOML theme file at path whenever it changes and passes
// each theme that loads and validates to apply. Files that fail to load are
// logged and skipped. Watch blocks until ctx is done.
//
// The directory is watched rather than the file, so editors that replace
// the file by renaming a new one over it are followed.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply func(Theme)) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("theme: watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("theme: watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu        sync.Mutex
		debouncer *time.Timer
	)
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		t, err := LoadFile(abs)
		if err != nil {
			logger.Warn("theme file not reloaded", "path", abs, "error", err)
			return
		}
		logger.Info("theme file reloaded", "path", abs, "theme", t.Name)
		apply(t)
	}
	defer func() {
		mu.Lock()
		if debouncer != nil {
			debouncer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			mu.Lock()
			if debouncer != nil {
				debouncer.Stop()
			}
			debouncer = time.AfterFunc(thWatchDebounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("theme watch", "error", err)
		}
	}
}
