// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package broadcast pushes grading events to websocket subscribers.
//
// The grading engine talks to the Notifier interface only; the Hub is
// the production implementation. Events are JSON frames of the form
// {"event": ..., "data": ...}. New subscribers immediately receive the
// current cycle counter and score snapshot, so a scoreboard opened
// mid-exercise renders without waiting for the next cycle.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rangeops/scorekeep/services/scoring/ledger"
	"github.com/rangeops/scorekeep/services/scoring/observability"
)

// Event names on the wire.
const (
	EventScores       = "scores"
	EventGradingCycle = "gradingCycle"
)

// Notifier is the sink the cycle scheduler publishes to.
type Notifier interface {
	// PublishScores fans out a post-cycle ledger snapshot.
	PublishScores(snapshot ledger.Snapshot)

	// PublishCycle fans out the current cycle counter. Emitted at the
	// start and again at the end of every cycle.
	PublishCycle(cycle int)
}

// Frame is one websocket message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// CyclePayload is the data of a gradingCycle frame.
type CyclePayload struct {
	Cycle int `json:"cycle"`
}

// subscriber sends are buffered; a viewer that can't drain sendBuffer
// frames is dropped rather than allowed to stall a grading cycle.
const sendBuffer = 16

type subscriber struct {
	id   string
	send chan Frame
}

// Hub is the websocket fan-out. Safe for concurrent use.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]*subscriber
	lastScores ledger.Snapshot
	lastCycle  int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// PublishScores stores the snapshot for replay and fans it out.
func (h *Hub) PublishScores(snapshot ledger.Snapshot) {
	snapshot = snapshot.Clone()
	h.mu.Lock()
	h.lastScores = snapshot
	h.fanoutLocked(Frame{Event: EventScores, Data: snapshot})
	h.mu.Unlock()
}

// PublishCycle stores the counter for replay and fans it out.
func (h *Hub) PublishCycle(cycle int) {
	h.mu.Lock()
	h.lastCycle = cycle
	h.fanoutLocked(Frame{Event: EventGradingCycle, Data: CyclePayload{Cycle: cycle}})
	h.mu.Unlock()
}

// fanoutLocked queues a frame for every subscriber, dropping any whose
// buffer is full. Caller holds h.mu.
func (h *Hub) fanoutLocked(frame Frame) {
	for id, sub := range h.subs {
		select {
		case sub.send <- frame:
		default:
			slog.Warn("dropping slow scoreboard subscriber", "subscriber", id)
			close(sub.send)
			delete(h.subs, id)
			subscriberGaugeDec()
		}
	}
}

// Attach registers the connection, replays current state, and services
// it until the peer disconnects. Blocks; call from the websocket handler
// goroutine. The connection is closed on return.
func (h *Hub) Attach(conn *websocket.Conn) {
	defer conn.Close()

	sub := &subscriber{
		id:   uuid.New().String(),
		send: make(chan Frame, sendBuffer),
	}

	h.mu.Lock()
	// Replay goes straight into the buffer before the subscriber is
	// visible to fanout, so replayed state can't race a publish.
	sub.send <- Frame{Event: EventGradingCycle, Data: CyclePayload{Cycle: h.lastCycle}}
	if h.lastScores != nil {
		sub.send <- Frame{Event: EventScores, Data: h.lastScores}
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()
	subscriberGaugeInc()
	slog.Info("scoreboard subscriber connected", "subscriber", sub.id)

	// Reader: we never expect frames from viewers, but the read loop is
	// what detects disconnection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case frame, ok := <-sub.send:
			if !ok {
				return // dropped as slow
			}
			if err := conn.WriteJSON(frame); err != nil {
				slog.Info("scoreboard subscriber disconnected", "subscriber", sub.id, "error", err.Error())
				h.remove(sub.id)
				return
			}
		case <-done:
			slog.Info("scoreboard subscriber disconnected", "subscriber", sub.id)
			h.remove(sub.id)
			return
		}
	}
}

// SubscriberCount returns the number of attached viewers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	if _, ok := h.subs[id]; ok {
		delete(h.subs, id)
		subscriberGaugeDec()
	}
	h.mu.Unlock()
}

func subscriberGaugeInc() {
	if m := observability.DefaultMetrics; m != nil {
		m.SubscriberConnected()
	}
}

func subscriberGaugeDec() {
	if m := observability.DefaultMetrics; m != nil {
		m.SubscriberDisconnected()
	}
}

var _ Notifier = (*Hub)(nil)
