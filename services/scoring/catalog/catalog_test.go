// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"testing"
	"time"

	"github.com/rangeops/scorekeep/services/scoring/config"
)

func TestExpand_FullCrossProduct(t *testing.T) {
	cfg := config.Default()
	scenarios := Expand(cfg, config.Overrides{})

	// 2 teams x 2 systems x 3 services
	if len(scenarios) != 12 {
		t.Fatalf("Expand() produced %d scenarios, want 12", len(scenarios))
	}

	seen := make(map[string]bool)
	for _, sc := range scenarios {
		seen[sc.TeamID+"/"+sc.ScoreKey] = true
	}
	for _, want := range []string{
		"team1/ubuntu1ping", "team1/ubuntu1ssh", "team1/ubuntu1web",
		"team2/ubuntu2ping", "team2/ubuntu2ssh", "team2/ubuntu2web",
	} {
		if !seen[want] {
			t.Errorf("missing scenario %s", want)
		}
	}
}

func TestExpand_ResolvesDefaults(t *testing.T) {
	cfg := config.Default()
	scenarios := Expand(cfg, config.Overrides{})

	var ssh Scenario
	for _, sc := range scenarios {
		if sc.TeamID == "team2" && sc.ScoreKey == "ubuntu1ssh" {
			ssh = sc
		}
	}
	if ssh.TeamID == "" {
		t.Fatal("team2/ubuntu1ssh not expanded")
	}

	if ssh.Address != "10.0.2.20" {
		t.Errorf("address = %q, want 10.0.2.20", ssh.Address)
	}
	if ssh.Port != 22 || ssh.Username != "sysadmin" || ssh.Password != "changeme" {
		t.Errorf("credentials = %s@%s:%d", ssh.Username, ssh.Password, ssh.Port)
	}
	if ssh.Points != 10 {
		t.Errorf("points = %d, want default 10", ssh.Points)
	}
	if ssh.Timeout != 20*time.Second {
		t.Errorf("timeout = %v, want 20s", ssh.Timeout)
	}
}

func TestExpand_AppliesOverrides(t *testing.T) {
	cfg := config.Default()
	overrides := config.Overrides{
		"team1": {
			"ubuntu1": {
				"ssh": {Username: "backdoor", Port: 2222},
			},
		},
	}

	scenarios := Expand(cfg, overrides)
	for _, sc := range scenarios {
		if sc.TeamID == "team1" && sc.ScoreKey == "ubuntu1ssh" {
			if sc.Username != "backdoor" || sc.Port != 2222 {
				t.Errorf("override not applied: %s:%d", sc.Username, sc.Port)
			}
			// Fields the override leaves zero keep defaults.
			if sc.Password != "changeme" {
				t.Errorf("password = %q, want default", sc.Password)
			}
			continue
		}
		// Every other scenario is untouched.
		if sc.ServiceKind == "ssh" && (sc.Username != "sysadmin" || sc.Port != 22) {
			t.Errorf("override leaked into %s/%s: %s:%d",
				sc.TeamID, sc.ScoreKey, sc.Username, sc.Port)
		}
	}
}

func TestExpand_IsPure(t *testing.T) {
	cfg := config.Default()
	a := Expand(cfg, config.Overrides{})
	b := Expand(cfg, config.Overrides{})

	if len(a) != len(b) {
		t.Fatalf("expansion lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("scenario %d differs across identical expansions", i)
		}
	}
}

func TestScoreKeys(t *testing.T) {
	cfg := config.Default()
	keys := ScoreKeys(cfg)

	if len(keys) != 2 {
		t.Fatalf("ScoreKeys teams = %d, want 2", len(keys))
	}
	if len(keys["team1"]) != 6 {
		t.Errorf("team1 keys = %v, want 6 entries", keys["team1"])
	}

	found := false
	for _, k := range keys["team2"] {
		if k == "ubuntu2web" {
			found = true
		}
	}
	if !found {
		t.Errorf("team2 keys missing ubuntu2web: %v", keys["team2"])
	}
}
