// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeops/scorekeep/services/scoring/ledger"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialHub starts an HTTP server that attaches every connection to the
// hub and returns a connected client.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame reads one frame with a deadline so a missing message fails
// fast instead of hanging the test.
func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func cyclePayload(t *testing.T, frame Frame) int {
	t.Helper()
	data, err := json.Marshal(frame.Data)
	require.NoError(t, err)
	var p CyclePayload
	require.NoError(t, json.Unmarshal(data, &p))
	return p.Cycle
}

func scoresPayload(t *testing.T, frame Frame) ledger.Snapshot {
	t.Helper()
	data, err := json.Marshal(frame.Data)
	require.NoError(t, err)
	var s ledger.Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHub_ReplaysStateOnConnect(t *testing.T) {
	hub := NewHub()
	hub.PublishCycle(7)
	hub.PublishScores(ledger.Snapshot{
		"team1": {"ubuntu1ssh": {Error: ledger.Success, Score: 30}},
	})

	conn := dialHub(t, hub)

	first := readFrame(t, conn)
	assert.Equal(t, EventGradingCycle, first.Event)
	assert.Equal(t, 7, cyclePayload(t, first))

	second := readFrame(t, conn)
	assert.Equal(t, EventScores, second.Event)
	scores := scoresPayload(t, second)
	assert.Equal(t, 30, scores["team1"]["ubuntu1ssh"].Score)
}

func TestHub_ReplayBeforeFirstCycle(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	// No scores published yet: only the zero cycle counter is replayed.
	first := readFrame(t, conn)
	assert.Equal(t, EventGradingCycle, first.Event)
	assert.Equal(t, 0, cyclePayload(t, first))
}

func TestHub_FansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := dialHub(t, hub)
	b := dialHub(t, hub)

	// Drain the replay frames.
	readFrame(t, a)
	readFrame(t, b)

	// Wait until both subscribers are registered.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 2, hub.SubscriberCount())

	hub.PublishCycle(3)

	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		assert.Equal(t, EventGradingCycle, frame.Event)
		assert.Equal(t, 3, cyclePayload(t, frame))
	}
}

func TestHub_RemovesDisconnectedSubscriber(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)
	readFrame(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.SubscriberCount())

	conn.Close()

	for hub.SubscriberCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestHub_PublishedSnapshotIsIsolated(t *testing.T) {
	hub := NewHub()
	snapshot := ledger.Snapshot{
		"team1": {"ubuntu1ssh": {Error: ledger.Success, Score: 10}},
	}
	hub.PublishScores(snapshot)

	// Mutating the caller's snapshot must not change replay state.
	snapshot["team1"]["ubuntu1ssh"] = ledger.Entry{Error: "tampered", Score: 0}

	conn := dialHub(t, hub)
	readFrame(t, conn) // cycle
	frame := readFrame(t, conn)
	scores := scoresPayload(t, frame)
	assert.Equal(t, 10, scores["team1"]["ubuntu1ssh"].Score)
	assert.Equal(t, ledger.Success, scores["team1"]["ubuntu1ssh"].Error)
}
