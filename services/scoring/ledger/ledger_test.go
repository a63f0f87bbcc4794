// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testKeys() map[string][]string {
	return map[string][]string{
		"team1": {"ubuntu1ping", "ubuntu1ssh"},
		"team2": {"ubuntu1ping", "ubuntu1ssh"},
	}
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "scores.json"), testKeys)
}

func TestLedger_RepairsMissingFile(t *testing.T) {
	l := newTestLedger(t)

	scores, err := l.Load()
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}

	for team, keys := range testKeys() {
		for _, key := range keys {
			entry, ok := scores[team][key]
			if !ok {
				t.Fatalf("repaired ledger missing %s/%s", team, key)
			}
			if entry.Error != NotTested || entry.Score != 0 {
				t.Errorf("%s/%s = %+v, want zeroed", team, key, entry)
			}
		}
	}
}

func TestLedger_RepairsCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "{{{not json"},
		{"null", "null"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scores.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			l := New(path, testKeys)
			scores, err := l.Load()
			if err != nil {
				t.Fatalf("Load() should repair, got: %v", err)
			}
			if scores["team1"]["ubuntu1ssh"].Error != NotTested {
				t.Errorf("repaired entry = %+v", scores["team1"]["ubuntu1ssh"])
			}

			// Repair persisted: the file now parses.
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			var onDisk Snapshot
			if err := json.Unmarshal(data, &onDisk); err != nil {
				t.Errorf("repaired file is not valid JSON: %v", err)
			}
		})
	}
}

func TestLedger_ApplyResultAccumulates(t *testing.T) {
	l := newTestLedger(t)

	if err := l.ApplyResult("team1", "ubuntu1ssh", Success, 10); err != nil {
		t.Fatal(err)
	}
	if err := l.ApplyResult("team1", "ubuntu1ssh", Success, 10); err != nil {
		t.Fatal(err)
	}
	if err := l.ApplyResult("team1", "ubuntu1ssh", "Authentication failed", 0); err != nil {
		t.Fatal(err)
	}

	scores, err := l.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	entry := scores["team1"]["ubuntu1ssh"]
	if entry.Score != 20 {
		t.Errorf("score = %d, want 20 (accumulated, failure adds zero)", entry.Score)
	}
	if entry.Error != "Authentication failed" {
		t.Errorf("diagnostic = %q, want last result's", entry.Error)
	}
}

func TestLedger_ApplyResultCreatesUnseenKey(t *testing.T) {
	l := newTestLedger(t)

	// A key outside the config universe (e.g. added mid-exercise).
	if err := l.ApplyResult("team3", "dc1ldap", Success, 25); err != nil {
		t.Fatal(err)
	}

	scores, err := l.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if scores["team3"]["dc1ldap"].Score != 25 {
		t.Errorf("unseen key entry = %+v", scores["team3"]["dc1ldap"])
	}
}

func TestLedger_Reset(t *testing.T) {
	l := newTestLedger(t)

	if err := l.ApplyResult("team1", "ubuntu1ping", Success, 10); err != nil {
		t.Fatal(err)
	}
	if err := l.Reset(); err != nil {
		t.Fatal(err)
	}

	scores, err := l.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	entry := scores["team1"]["ubuntu1ping"]
	if entry.Score != 0 || entry.Error != NotTested {
		t.Errorf("entry after Reset = %+v, want zeroed", entry)
	}
}

func TestLedger_ConcurrentApplyNoLostUpdates(t *testing.T) {
	l := newTestLedger(t)

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			team := fmt.Sprintf("team%d", (w%2)+1)
			key := []string{"ubuntu1ping", "ubuntu1ssh"}[w%2]
			for i := 0; i < perWorker; i++ {
				if err := l.ApplyResult(team, key, Success, 1); err != nil {
					t.Errorf("ApplyResult: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	scores, err := l.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, entries := range scores {
		for _, e := range entries {
			total += e.Score
		}
	}
	if total != workers*perWorker {
		t.Errorf("total score = %d, want %d (no update may be lost)", total, workers*perWorker)
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := Snapshot{
		"team1": {"ubuntu1ssh": {Error: Success, Score: 10}},
	}
	clone := orig.Clone()
	clone["team1"]["ubuntu1ssh"] = Entry{Error: "tampered", Score: 0}

	if orig["team1"]["ubuntu1ssh"].Error != Success {
		t.Error("mutating a clone must not affect the original")
	}
}

func TestLedger_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	l := New(filepath.Join(dir, "scores.json"), testKeys)
	if err := l.ApplyResult("team1", "ubuntu1ping", Success, 10); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "scores.json" {
			t.Errorf("unexpected file after persist: %s", e.Name())
		}
	}
}
