// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the master config store when the backing file changes,
// so interval or system edits take effect without a restart. The reload
// lands between cycles: the scheduler snapshots the config at the start
// of each cycle, so a mid-cycle write never changes in-flight scenarios.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over the store's backing file.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{store: store, watcher: fw}, nil
}

// Start begins watching. Blocks until the context is cancelled; run in a
// goroutine.
func (w *Watcher) Start(ctx context.Context) {
	if err := w.watcher.Add(w.store.Path()); err != nil {
		slog.Warn("failed to watch master config, hot reload disabled",
			"path", w.store.Path(), "error", err)
		return
	}
	slog.Info("watching master config for changes", "path", w.store.Path())

	// Editors replace-and-rename; coalesce the resulting event burst.
	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, func() {
				if err := w.store.Reload(); err != nil {
					slog.Warn("master config reload failed, keeping previous config", "error", err)
				}
				// A rename drops the watch on some platforms; re-add.
				_ = w.watcher.Add(w.store.Path())
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
