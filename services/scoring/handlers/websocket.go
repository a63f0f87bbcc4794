// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rangeops/scorekeep/services/scoring/broadcast"
)

var upgrader = websocket.Upgrader{
	// The scoreboard is served from arbitrary exercise hosts.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// HandleScoreboardWebSocket upgrades the connection and hands it to the
// broadcast hub, which replays current state and streams cycle events
// until the viewer disconnects.
func HandleScoreboardWebSocket(hub *broadcast.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade scoreboard websocket", "error", err)
			return
		}
		hub.Attach(ws)
	}
}
