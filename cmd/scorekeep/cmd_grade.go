// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rangeops/scorekeep/services/scoring/broadcast"
	"github.com/rangeops/scorekeep/services/scoring/catalog"
	"github.com/rangeops/scorekeep/services/scoring/config"
	"github.com/rangeops/scorekeep/services/scoring/grader"
	"github.com/rangeops/scorekeep/services/scoring/ledger"
)

// runGrade executes one grading cycle against the configured teams and
// prints the resulting score ledger as JSON. Useful for smoke-testing
// an exercise network before the event starts.
func runGrade(cmd *cobra.Command, args []string) {
	cfgStore, err := config.NewStore(configPath)
	if err != nil {
		slog.Warn("master config unusable, grading with built-in defaults", "error", err)
	}
	overrides := config.NewOverrideStore(overridesPath)

	led := ledger.New(ledgerPath, func() map[string][]string {
		return catalog.ScoreKeys(cfgStore.Config())
	})
	if err := led.Reset(); err != nil {
		log.Fatalf("Failed to initialize score ledger: %v", err)
	}

	masterCfg := cfgStore.Config()
	sched := grader.NewScheduler(
		func() []catalog.Scenario {
			return catalog.Expand(cfgStore.Config(), overrides.Load())
		},
		led,
		broadcast.NewHub(),
		grader.SchedulerConfig{
			Interval:            masterCfg.Interval(),
			MaxConcurrentProbes: masterCfg.Grading.MaxConcurrentProbes,
		},
	)

	result := sched.RunNow(context.Background())
	slog.Info("grading cycle complete",
		"scenarios", result.Scenarios,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration_ms", result.DurationMs(),
	)

	snapshot, err := led.Snapshot()
	if err != nil {
		log.Fatalf("Failed to read score ledger: %v", err)
	}
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode scores: %v", err)
	}
	fmt.Println(string(out))
}
