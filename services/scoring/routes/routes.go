// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rangeops/scorekeep/services/scoring/broadcast"
	"github.com/rangeops/scorekeep/services/scoring/config"
	"github.com/rangeops/scorekeep/services/scoring/handlers"
	"github.com/rangeops/scorekeep/services/scoring/ledger"
)

// SetupRoutes registers the full HTTP surface of the grading engine.
func SetupRoutes(router *gin.Engine, cfgStore *config.Store, overrides *config.OverrideStore,
	led *ledger.Ledger, status handlers.GradingStatus, hub *broadcast.Hub) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.GET("/status", handlers.Status(status))
		v1.GET("/scores", handlers.Scores(led))
		v1.GET("/scores/:teamID", handlers.TeamScores(led))
		v1.GET("/catalog", handlers.Catalog(cfgStore))
		v1.GET("/ws", handlers.HandleScoreboardWebSocket(hub))

		overridesGroup := v1.Group("/overrides")
		{
			overridesGroup.GET("/:teamID", handlers.GetOverrides(overrides))
			overridesGroup.PUT("/:teamID", handlers.PutOverrides(overrides, status))
		}
	}
}
