// Package watch notices when the sleep database is changed by another
// process, so an open tracker screen can reload.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of writes a single commit produces.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls onChange after dbPath (or its -wal/-journal files) is written,
// at most once per debounce window. It blocks until ctx is cancelled.
func Watch(ctx context.Context, dbPath string, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: SQLite replaces journal files, which drops
	// watches placed on the files themselves.
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, dbPath) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			onChange()

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Transient watcher errors are not fatal; the next write retriggers.
		}
	}
}

func relevant(event fsnotify.Event, dbPath string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(event.Name)
	base := filepath.Clean(dbPath)
	return name == base || name == base+"-wal" || name == base+"-journal"
}
