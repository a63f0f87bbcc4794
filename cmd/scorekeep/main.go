// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command scorekeep runs the cyber exercise grading engine.
//
// The engine expands the master config into per-team probe scenarios,
// grades every team's services each cycle, persists scores to a JSON
// ledger, and pushes updates to scoreboard clients over websockets.
//
// # Environment Variables
//
//   - SCOREKEEP_PORT: HTTP server port (default: 5000)
//   - SCOREKEEP_CONFIG: master config path (default: master_config.yaml)
//   - SCOREKEEP_OVERRIDES: team override path (default: team_configs.json)
//   - SCOREKEEP_LEDGER: score ledger path (default: scores.json)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: scorekeep-otel-collector:4317)
//
// Flags take precedence over environment variables.
//
// # Usage
//
//	# Build
//	go build -o scorekeep ./cmd/scorekeep
//
//	# Run the server
//	./scorekeep serve
//
//	# Run a single grading cycle and print the scores
//	./scorekeep grade
//
//	# Check the master config without grading
//	./scorekeep validate
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/rangeops/scorekeep/pkg/logging"
)

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "scorekeep",
		JSON:    getEnvString("SCOREKEEP_LOG_FORMAT", "text") == "json",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
