// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package grader drives the grading cycles.
//
// One long-lived loop runs cycles serially: a cycle dispatches every
// scenario's probe in parallel, waits for all of them at a barrier,
// applies the results to the ledger, and publishes the post-cycle
// snapshot. The next cycle starts a fixed interval after the previous
// one finished, so a slow cycle delays its successor rather than
// overlapping it.
package grader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rangeops/scorekeep/services/scoring/catalog"
	"github.com/rangeops/scorekeep/services/scoring/ledger"
	"github.com/rangeops/scorekeep/services/scoring/observability"
	"github.com/rangeops/scorekeep/services/scoring/probes"
)

// SchedulerConfig holds the cycle scheduler settings.
//
//   - Interval: pause between a cycle's completion and the next start.
//   - MaxConcurrentProbes: cap on simultaneously running probes. All of
//     a cycle's probes still run "in parallel" from the scenarios' point
//     of view; the cap only prevents descriptor exhaustion when the
//     catalog grows large.
type SchedulerConfig struct {
	Interval            time.Duration
	MaxConcurrentProbes int
}

// DefaultSchedulerConfig returns production defaults: the exercise-
// standard 40s interval and a 32-probe cap.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:            40 * time.Second,
		MaxConcurrentProbes: 32,
	}
}

// CycleResult summarizes one completed grading cycle.
type CycleResult struct {
	Cycle     int
	Scenarios int
	Succeeded int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// DurationMs returns the cycle wall time in milliseconds.
func (r CycleResult) DurationMs() int64 {
	return r.EndTime.Sub(r.StartTime).Milliseconds()
}

// Scheduler runs the grading loop. It is the sole writer-initiator for
// the ledger and the owner of the process-wide cycle counter.
type Scheduler struct {
	expand   func() []catalog.Scenario
	ledger   *ledger.Ledger
	notifier notifier
	config   SchedulerConfig

	// lookup is swappable for tests; production uses probes.Lookup.
	lookup func(kind string) (probes.Func, bool)

	cycle   atomic.Int64
	grading atomic.Bool

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// notifier is the slice of broadcast.Notifier the scheduler needs;
// declared locally so tests can fake it without importing the hub.
type notifier interface {
	PublishScores(snapshot ledger.Snapshot)
	PublishCycle(cycle int)
}

// NewScheduler creates a scheduler. expand is called at the start of
// every cycle and must return the current scenario list (it closes over
// the config store and override store, so edits made between cycles are
// picked up automatically).
func NewScheduler(expand func() []catalog.Scenario, led *ledger.Ledger, sink notifier, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.MaxConcurrentProbes <= 0 {
		config.MaxConcurrentProbes = DefaultSchedulerConfig().MaxConcurrentProbes
	}
	return &Scheduler{
		expand:   expand,
		ledger:   led,
		notifier: sink,
		config:   config,
		lookup:   probes.Lookup,
		done:     make(chan struct{}),
	}
}

// Start launches the grading loop in a background goroutine. The first
// cycle begins immediately. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("grading scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("grading scheduler starting",
		"interval", s.config.Interval.String(),
		"max_concurrent_probes", s.config.MaxConcurrentProbes,
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit after the current cycle. Safe to call
// multiple times.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	slog.Info("grading scheduler stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow executes a single grading cycle synchronously. Used by the
// one-shot CLI command and tests; does not affect loop timing.
func (s *Scheduler) RunNow(ctx context.Context) CycleResult {
	return s.runCycle(ctx)
}

// IsGrading reports whether a cycle is currently in flight. The config
// UI checks this before accepting override edits; it is advisory, and a
// write racing the flag check is tolerated.
func (s *Scheduler) IsGrading() bool {
	return s.grading.Load()
}

// Cycle returns the current cycle counter.
func (s *Scheduler) Cycle() int {
	return int(s.cycle.Load())
}

// runLoop runs cycles back-to-back with a fixed pause between them. The
// pause is measured from cycle completion, not from a wall-clock
// schedule: a cycle that runs long delays the next one.
func (s *Scheduler) runLoop(ctx context.Context) {
	for {
		s.executeCycle(ctx)

		timer := time.NewTimer(s.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("grading scheduler stopped (context cancelled)")
			return
		case <-s.done:
			timer.Stop()
			slog.Info("grading scheduler stopped (stop requested)")
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) executeCycle(ctx context.Context) {
	result := s.runCycle(ctx)
	slog.Info("grading cycle completed",
		"cycle", result.Cycle,
		"scenarios", result.Scenarios,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration_ms", result.DurationMs(),
	)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordCycle(result.EndTime.Sub(result.StartTime).Seconds())
	}
}

// runCycle performs one full grading pass: counter, parallel probes,
// barrier, ledger updates, snapshot broadcast.
func (s *Scheduler) runCycle(ctx context.Context) CycleResult {
	cycle := int(s.cycle.Add(1))
	s.grading.Store(true)
	defer s.grading.Store(false)

	result := CycleResult{Cycle: cycle, StartTime: time.Now()}

	// Publish the counter before any probe runs, so viewers see cycle
	// progress even while results are still landing.
	s.notifier.PublishCycle(cycle)

	scenarios := s.expand()
	result.Scenarios = len(scenarios)
	slog.Info("grading cycle starting", "cycle", cycle, "scenarios", len(scenarios))

	var succeeded, failed, skipped atomic.Int64

	g := &errgroup.Group{}
	g.SetLimit(s.config.MaxConcurrentProbes)
	for _, sc := range scenarios {
		probe, ok := s.lookup(sc.ServiceKind)
		if !ok {
			// Unknown kinds are future service types, not errors.
			slog.Debug("skipping scenario with unknown service kind",
				"kind", sc.ServiceKind, "team", sc.TeamID, "score_key", sc.ScoreKey)
			skipped.Add(1)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordSkip()
			}
			continue
		}

		sc := sc
		g.Go(func() error {
			if s.gradeScenario(ctx, probe, sc) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}

	// Barrier: the cycle does not proceed until the slowest probe
	// returns or times out on its own.
	_ = g.Wait()

	result.Succeeded = int(succeeded.Load())
	result.Failed = int(failed.Load())
	result.Skipped = int(skipped.Load())
	result.EndTime = time.Now()

	snapshot, err := s.ledger.Snapshot()
	if err != nil {
		slog.Error("failed to snapshot ledger after cycle", "cycle", cycle, "error", err)
	} else {
		s.notifier.PublishScores(snapshot)
	}
	s.notifier.PublishCycle(cycle)

	return result
}

// gradeScenario runs one probe and applies its result: full points on
// success, zero points plus the diagnostic on failure. Returns the probe
// outcome.
func (s *Scheduler) gradeScenario(ctx context.Context, probe probes.Func, sc catalog.Scenario) bool {
	if m := observability.DefaultMetrics; m != nil {
		m.ProbeStarted()
		defer m.ProbeEnded()
	}

	start := time.Now()
	res := probe(ctx, probes.Target{
		Address:  sc.Address,
		Port:     sc.Port,
		Username: sc.Username,
		Password: sc.Password,
		Domain:   sc.Domain,
		Timeout:  sc.Timeout,
	})
	elapsed := time.Since(start)

	if m := observability.DefaultMetrics; m != nil {
		m.RecordProbe(sc.ServiceKind, res.OK, elapsed.Seconds())
	}

	var err error
	if res.OK {
		err = s.ledger.ApplyResult(sc.TeamID, sc.ScoreKey, ledger.Success, sc.Points)
	} else {
		err = s.ledger.ApplyResult(sc.TeamID, sc.ScoreKey, res.Detail, 0)
	}
	if err != nil {
		slog.Error("failed to record probe result",
			"team", sc.TeamID, "score_key", sc.ScoreKey, "error", err)
	}
	return res.OK
}
