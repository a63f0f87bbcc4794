// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ServiceOverride is a per-team adjustment to one service's probe
// parameters. Zero-valued fields fall back to the service default.
type ServiceOverride struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Port     int    `json:"port,omitempty"`
}

// Overrides maps team id -> system name -> service kind -> override.
type Overrides map[string]map[string]map[string]ServiceOverride

// Lookup returns the override for a (team, system, service) triple.
func (o Overrides) Lookup(teamID, system, kind string) (ServiceOverride, bool) {
	systems, ok := o[teamID]
	if !ok {
		return ServiceOverride{}, false
	}
	services, ok := systems[system]
	if !ok {
		return ServiceOverride{}, false
	}
	ov, ok := services[kind]
	return ov, ok
}

// DefaultOverrides derives a fully-populated override document from the
// master config's service defaults. Used to seed the override file so
// the config UI always has a complete structure to edit.
func DefaultOverrides(cfg Config) Overrides {
	out := make(Overrides, len(cfg.Teams))
	for _, team := range cfg.Teams {
		out[team.ID] = make(map[string]map[string]ServiceOverride, len(cfg.Systems))
		for _, sys := range cfg.Systems {
			services := make(map[string]ServiceOverride, len(sys.Services))
			for _, kind := range sys.Services {
				def, ok := cfg.Services[kind]
				if !ok {
					continue
				}
				services[kind] = ServiceOverride{
					Username: def.DefaultUsername,
					Password: def.DefaultPassword,
					Domain:   def.DefaultDomain,
					Port:     def.DefaultPort,
				}
			}
			out[team.ID][sys.Name] = services
		}
	}
	return out
}

// OverrideStore persists team overrides as JSON with the same
// temp-file-then-rename discipline as the score ledger, so the config UI
// and the grading loop never observe a torn file.
type OverrideStore struct {
	path string
	mu   sync.Mutex
}

// NewOverrideStore wraps the override document at path. The file is
// created lazily on first Save; a missing file reads as empty overrides.
func NewOverrideStore(path string) *OverrideStore {
	return &OverrideStore{path: path}
}

// Load reads the current override document. Missing or corrupt files
// yield an empty document: every probe then uses service defaults, which
// is the safe degraded mode.
func (s *OverrideStore) Load() Overrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *OverrideStore) readLocked() Overrides {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read team overrides, using defaults", "path", s.path, "error", err)
		}
		return Overrides{}
	}
	var out Overrides
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Warn("team override file is corrupt, using defaults", "path", s.path, "error", err)
		return Overrides{}
	}
	return out
}

// SetTeam replaces one team's overrides and persists the document.
func (s *OverrideStore) SetTeam(teamID string, overrides map[string]map[string]ServiceOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readLocked()
	all[teamID] = overrides
	return s.persistLocked(all)
}

// Replace persists a whole override document.
func (s *OverrideStore) Replace(all Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(all)
}

func (s *OverrideStore) persistLocked(all Overrides) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode team overrides: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write team overrides: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace team overrides: %w", err)
	}
	return nil
}
