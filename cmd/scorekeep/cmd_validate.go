// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/rangeops/scorekeep/services/scoring/catalog"
	"github.com/rangeops/scorekeep/services/scoring/config"
)

// runValidate loads and validates the master config, then prints the
// scenarios a grading cycle would probe. Exits non-zero on an invalid
// config.
func runValidate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Invalid master config %s: %v", configPath, err)
	}

	overrides := config.NewOverrideStore(overridesPath)
	scenarios := catalog.Expand(cfg, overrides.Load())

	fmt.Printf("Config OK: %d teams, %d systems, %d services, interval %s\n",
		len(cfg.Teams), len(cfg.Systems), len(cfg.Services), cfg.Interval())
	fmt.Printf("%d scenarios per grading cycle:\n", len(scenarios))
	for _, sc := range scenarios {
		fmt.Printf("  %-10s %-22s %s %s:%d\n",
			sc.TeamID, sc.ScoreKey, sc.ServiceKind, sc.Address, sc.Port)
	}
}
