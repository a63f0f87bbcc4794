// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master_config.yaml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.Config().Teams) != 2 {
		t.Fatalf("precondition: default config has 2 teams")
	}

	w, err := NewWatcher(store)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	content := `
teams:
  - id: solo
    index: 9
systems:
  - name: ubuntu1
    ip_offset: 20
    services: [ping]
services:
  ping:
    display_name: ICMP
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		cfg := store.Config()
		if len(cfg.Teams) == 1 && cfg.Teams[0].ID == "solo" {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Errorf("watcher did not reload config within deadline: %+v", store.Config().Teams)
}

func TestWatcher_InvalidWriteKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master_config.yaml")
	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(store)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	// Wait past the debounce window, then confirm the store is intact.
	time.Sleep(600 * time.Millisecond)
	if len(store.Config().Teams) != 2 {
		t.Errorf("invalid write must not replace the config: %+v", store.Config().Teams)
	}
}
