// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rangeops/scorekeep/services/scoring"
)

// runServe starts the grading engine and blocks until the HTTP server
// stops.
func runServe(cmd *cobra.Command, args []string) {
	cfg := scoring.Config{
		Port:               serverPort,
		ConfigPath:         configPath,
		OverridesPath:      overridesPath,
		LedgerPath:         ledgerPath,
		OTelEndpoint:       getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "scorekeep-otel-collector:4317"),
		GinMode:            ginMode,
		DisableConfigWatch: noWatch,
	}

	slog.Info("starting scorekeep",
		"port", cfg.Port,
		"config", cfg.ConfigPath,
		"ledger", cfg.LedgerPath,
	)

	svc, err := scoring.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create grading engine: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Grading engine error: %v", err)
	}
}
