// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverPort    int
	configPath    string
	overridesPath string
	ledgerPath    string
	ginMode       string
	noWatch       bool

	rootCmd = &cobra.Command{
		Use:   "scorekeep",
		Short: "A grading engine for cyber exercise scoring",
		Long: `Scorekeep probes each team's exercise services (ping, SSH,
HTTP, LDAP) on a fixed cadence, keeps a durable score ledger, and
pushes live scores to scoreboard clients over websockets.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the grading loop and scoreboard HTTP server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	gradeCmd = &cobra.Command{
		Use:   "grade",
		Short: "Run a single grading cycle and print the resulting scores",
		Run:   runGrade, // Defined in cmd_grade.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check the master config and print the expanded scenarios",
		Run:   runValidate, // Defined in cmd_validate.go
	}
)

func init() {
	rootCmd.PersistentFlags().IntVar(&serverPort, "port",
		getEnvInt("SCOREKEEP_PORT", 5000), "HTTP server port")
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		getEnvString("SCOREKEEP_CONFIG", "master_config.yaml"), "master config path")
	rootCmd.PersistentFlags().StringVar(&overridesPath, "overrides",
		getEnvString("SCOREKEEP_OVERRIDES", "team_configs.json"), "team override path")
	rootCmd.PersistentFlags().StringVar(&ledgerPath, "ledger",
		getEnvString("SCOREKEEP_LEDGER", "scores.json"), "score ledger path")

	serveCmd.Flags().StringVar(&ginMode, "gin-mode", "", "gin framework mode (debug, release, test)")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable master config hot reload")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(validateCmd)
}
