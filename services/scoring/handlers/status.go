// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP surface the scoreboard UI polls:
// grading status, score projections, the team/service catalog, and the
// team override editor. All endpoints are read-only projections of
// engine state except the override writes, which are rejected while a
// cycle is in flight.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rangeops/scorekeep/services/scoring/config"
	"github.com/rangeops/scorekeep/services/scoring/ledger"
	"github.com/rangeops/scorekeep/services/scoring/probes"
)

// GradingStatus is the scheduler state the handlers read. Satisfied by
// *grader.Scheduler.
type GradingStatus interface {
	IsGrading() bool
	Cycle() int
}

// HealthCheck responds to liveness probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status returns the grading flag and cycle counter.
func Status(status GradingStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"grading": status.IsGrading(),
			"cycle":   status.Cycle(),
		})
	}
}

// Scores returns the full ledger snapshot.
func Scores(led *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := led.Snapshot()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

// TeamScores returns one team's score map.
func TeamScores(led *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamID")
		snapshot, err := led.Snapshot()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		entries, ok := snapshot[teamID]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown team: " + teamID})
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

// Catalog returns the team/system/service projection the UI renders its
// tables from. Secrets and default credentials are excluded by the
// config types' JSON tags.
func Catalog(store *config.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := store.Config()
		c.JSON(http.StatusOK, gin.H{
			"teams":         cfg.Teams,
			"systems":       cfg.Systems,
			"services":      cfg.Services,
			"service_kinds": probes.Kinds(),
			"grading":       cfg.Grading,
		})
	}
}

// GetOverrides returns one team's current override document.
func GetOverrides(store *config.OverrideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamID")
		all := store.Load()
		overrides, ok := all[teamID]
		if !ok {
			overrides = map[string]map[string]config.ServiceOverride{}
		}
		c.JSON(http.StatusOK, overrides)
	}
}

// PutOverrides replaces one team's overrides. Rejected with 409 while a
// grading cycle is in flight so credentials never change mid-probe; the
// check is advisory and the client simply retries after the cycle.
func PutOverrides(store *config.OverrideStore, status GradingStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if status.IsGrading() {
			c.JSON(http.StatusConflict, gin.H{
				"error": "grading cycle in progress, retry after it completes",
				"cycle": status.Cycle(),
			})
			return
		}

		teamID := c.Param("teamID")
		var overrides map[string]map[string]config.ServiceOverride
		if err := c.ShouldBindJSON(&overrides); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid override document: " + err.Error()})
			return
		}

		if err := store.SetTeam(teamID, overrides); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved", "team": teamID})
	}
}
