package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads path whenever it changes and passes the result to fn. A nil
// config comes with the load error. The parent directory is watched so that
// rename-on-save editors are followed. Watch returns once the watcher is
// running; it stops when ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(*ProfileConfig, error)) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	go watchLoop(ctx, w, path, debounce, fn)
	return nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, path string, debounce time.Duration, fn func(*ProfileConfig, error)) {
	defer w.Close()
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fn(nil, err)
		case <-timer.C:
			cfg, err := Load(path)
			fn(cfg, err)
		}
	}
}
