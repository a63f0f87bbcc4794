// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ledger is the durable score store: team -> score key ->
// {cumulative score, last diagnostic}.
//
// Many probes finish concurrently and each applies its result
// independently, so the read-modify-write-persist sequence is the unit
// that must be serialized. A single mutex guards it; probes never hold
// the lock across network I/O, only across the brief file update.
// Persistence is write-temp-then-rename, so a concurrent reader always
// observes either the previous complete document or the new one, never a
// partial write.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// NotTested is the diagnostic for entries no cycle has graded yet.
const NotTested = "Not tested"

// Success is the diagnostic recorded when a probe passes.
const Success = "Success"

// Entry is one service's standing for one team. Score accumulates
// monotonically; Error holds "Success" or the last failure diagnostic.
type Entry struct {
	Error string `json:"error"`
	Score int    `json:"score"`
}

// Snapshot maps team id -> score key -> entry. It is the unit exchanged
// with the broadcast hub and returned by the scores API.
type Snapshot map[string]map[string]Entry

// Clone returns a deep copy, so a published snapshot can't be mutated by
// a later cycle while a subscriber still holds it.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for team, entries := range s {
		teamCopy := make(map[string]Entry, len(entries))
		for key, e := range entries {
			teamCopy[key] = e
		}
		out[team] = teamCopy
	}
	return out
}

// Ledger owns the durable score file. keys supplies the (team, score
// key) universe used to build a zeroed document on first run or after
// corruption; it is re-evaluated on every repair so a config change is
// reflected in the repaired structure.
type Ledger struct {
	path string
	keys func() map[string][]string
	mu   sync.Mutex
}

// New creates a ledger over the given file. keys must return the current
// (team, score key) pairs; it is called on every repair path.
func New(path string, keys func() map[string][]string) *Ledger {
	return &Ledger{path: path, keys: keys}
}

// Reset discards any previous run's scores and persists a zeroed
// document. Called once at process start: exercise history does not
// carry across engine restarts by design.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	zeroed := l.zeroedLocked()
	if err := l.persistLocked(zeroed); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	slog.Info("score ledger reset to initial state", "path", l.path)
	return nil
}

// Load reads the durable store, repairing a missing, empty, or invalid
// file by reinitializing it to the zeroed structure and persisting the
// repair before returning. Repair is idempotent: a second Load returns
// the same structure.
func (l *Ledger) Load() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

// Snapshot is the read path used by status queries and the post-cycle
// broadcast. Identical semantics to Load.
func (l *Ledger) Snapshot() (Snapshot, error) {
	return l.Load()
}

// ApplyResult records one probe outcome: under exclusive access it loads
// the current state (repairing corruption exactly as Load does), ensures
// the entry exists, adds the awarded points, replaces the diagnostic,
// and persists atomically. Concurrent callers serialize here, so no
// update is ever lost to a read-modify-write race.
func (l *Ledger) ApplyResult(teamID, scoreKey, detail string, points int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	scores, err := l.loadLocked()
	if err != nil {
		return err
	}

	if _, ok := scores[teamID]; !ok {
		scores[teamID] = make(map[string]Entry)
	}
	entry, ok := scores[teamID][scoreKey]
	if !ok {
		entry = Entry{Error: NotTested, Score: 0}
	}

	entry.Score += points
	entry.Error = detail
	scores[teamID][scoreKey] = entry

	if err := l.persistLocked(scores); err != nil {
		return fmt.Errorf("failed to persist score for %s/%s: %w", teamID, scoreKey, err)
	}
	return nil
}

// loadLocked reads and, when necessary, repairs the score file. Caller
// holds l.mu.
func (l *Ledger) loadLocked() (Snapshot, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read score ledger: %w", err)
		}
		return l.repairLocked("missing")
	}

	var scores Snapshot
	if err := json.Unmarshal(data, &scores); err != nil {
		return l.repairLocked(fmt.Sprintf("invalid JSON: %v", err))
	}
	if scores == nil {
		return l.repairLocked("null document")
	}
	return scores, nil
}

// repairLocked reinitializes the ledger to the zeroed structure and
// persists it. This discards any accumulated score the corrupt file may
// have held; that is the accepted trade for a trivially idempotent
// repair path.
func (l *Ledger) repairLocked(reason string) (Snapshot, error) {
	slog.Warn("score ledger unreadable, reinitializing", "path", l.path, "reason", reason)
	zeroed := l.zeroedLocked()
	if err := l.persistLocked(zeroed); err != nil {
		return nil, fmt.Errorf("failed to repair score ledger: %w", err)
	}
	return zeroed, nil
}

func (l *Ledger) zeroedLocked() Snapshot {
	zeroed := make(Snapshot)
	for teamID, scoreKeys := range l.keys() {
		entries := make(map[string]Entry, len(scoreKeys))
		for _, key := range scoreKeys {
			entries[key] = Entry{Error: NotTested, Score: 0}
		}
		zeroed[teamID] = entries
	}
	return zeroed
}

// persistLocked writes the full document via temp file + atomic rename.
func (l *Ledger) persistLocked(scores Snapshot) error {
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write scores temp file: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace score ledger: %w", err)
	}
	return nil
}
