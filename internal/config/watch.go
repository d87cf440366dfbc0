package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the config file changes on disk.
// It reloads through the loader and hands the result to onChange; applying
// the new values is up to the callback. Serve mode only logs the reload.
type Watcher struct {
	loader   *Loader
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
}

// NewWatcher creates a watcher over the file the loader last read.
func NewWatcher(loader *Loader, onChange func(*Config)) (*Watcher, error) {
	path := loader.ConfigFileUsed()
	if path == "" {
		return nil, fmt.Errorf("no config file in use, nothing to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory: editors replace files by rename, which would
	// drop a watch on the file itself.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}

	return &Watcher{
		loader:   loader,
		path:     filepath.Clean(path),
		watcher:  fsWatcher,
		onChange: onChange,
	}, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := w.loader.Load()
			if err != nil {
				// Invalid intermediate states are normal while editing.
				continue
			}
			if w.onChange != nil {
				w.onChange(cfg)
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
