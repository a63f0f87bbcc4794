// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the master config at path. If the file does
// not exist it is created from Default() so a fresh deployment starts
// grading immediately. Any other failure returns Default() alongside the
// error; the caller decides whether to log and continue.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("master config not found, creating default", "path", path)
		if err := writeDefault(path); err != nil {
			return Default(), fmt.Errorf("failed to create default master config: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read master config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse master config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Store holds the current master config and supports reload between
// grading cycles. Reads vastly outnumber reloads, so it is guarded by a
// RWMutex rather than swapping pointers.
type Store struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

// NewStore loads the config at path. On load failure the store starts
// with Default() and the error is returned for logging; the store is
// still usable.
func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	return &Store{path: path, cfg: cfg}, err
}

// Config returns the current configuration snapshot.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Path returns the file backing this store.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the backing file. An invalid file leaves the previous
// configuration in place.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	slog.Info("master config reloaded", "path", s.path,
		"teams", len(cfg.Teams), "systems", len(cfg.Systems))
	return nil
}
