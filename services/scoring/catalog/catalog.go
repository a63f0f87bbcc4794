// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog expands the master configuration and team overrides
// into the concrete set of grading scenarios for one cycle.
//
// Expansion is pure: it touches no network and no ledger, so two calls
// with the same inputs produce the same scenarios. Scenarios are
// recomputed every cycle and never persisted.
package catalog

import (
	"time"

	"github.com/rangeops/scorekeep/services/scoring/config"
)

// Scenario is the fully resolved unit of grading work: one team, one
// system, one service kind, with credentials and timing resolved from
// override-else-default.
type Scenario struct {
	TeamID         string
	TeamIndex      int
	SystemName     string
	SystemDisplay  string
	ServiceKind    string
	ServiceDisplay string
	Address        string
	Port           int
	Username       string
	Password       string
	Domain         string
	Points         int
	Timeout        time.Duration

	// ScoreKey indexes the ledger: <system><service>, e.g. "ubuntu1ssh".
	ScoreKey string
}

// Expand produces the ordered scenario list: every team crossed with
// every system crossed with every service kind that system exposes.
// Systems referencing undefined service kinds were rejected by config
// validation; the guard here only covers the built-in default path.
func Expand(cfg config.Config, overrides config.Overrides) []Scenario {
	var scenarios []Scenario
	for _, team := range cfg.Teams {
		for _, sys := range cfg.Systems {
			addr := cfg.TeamAddress(team, sys)
			for _, kind := range sys.Services {
				def, ok := cfg.Service(kind)
				if !ok {
					continue
				}
				sc := Scenario{
					TeamID:         team.ID,
					TeamIndex:      team.Index,
					SystemName:     sys.Name,
					SystemDisplay:  sys.DisplayName,
					ServiceKind:    kind,
					ServiceDisplay: def.DisplayName,
					Address:        addr,
					Port:           def.DefaultPort,
					Username:       def.DefaultUsername,
					Password:       def.DefaultPassword,
					Domain:         def.DefaultDomain,
					Points:         def.Points,
					Timeout:        time.Duration(def.TimeoutSeconds) * time.Second,
					ScoreKey:       sys.Name + kind,
				}
				if ov, ok := overrides.Lookup(team.ID, sys.Name, kind); ok {
					applyOverride(&sc, ov)
				}
				scenarios = append(scenarios, sc)
			}
		}
	}
	return scenarios
}

func applyOverride(sc *Scenario, ov config.ServiceOverride) {
	if ov.Username != "" {
		sc.Username = ov.Username
	}
	if ov.Password != "" {
		sc.Password = ov.Password
	}
	if ov.Domain != "" {
		sc.Domain = ov.Domain
	}
	if ov.Port != 0 {
		sc.Port = ov.Port
	}
}

// ScoreKeys returns every (team, score key) pair the config can grade,
// used to seed a zeroed ledger.
func ScoreKeys(cfg config.Config) map[string][]string {
	keys := make(map[string][]string, len(cfg.Teams))
	for _, team := range cfg.Teams {
		for _, sys := range cfg.Systems {
			for _, kind := range sys.Services {
				if _, ok := cfg.Service(kind); !ok {
					continue
				}
				keys[team.ID] = append(keys[team.ID], sys.Name+kind)
			}
		}
	}
	return keys
}
