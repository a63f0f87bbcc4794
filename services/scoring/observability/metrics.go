// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the grading
// engine: probe outcomes and latency, cycle timing, and websocket
// subscriber counts. Exposed via /metrics; all operations are
// thread-safe through Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "scorekeep"

const gradingSubsystem = "grading"

// GradingMetrics holds all Prometheus metrics for the grading engine.
// Initialize once at startup via InitMetrics.
type GradingMetrics struct {
	// ProbesTotal counts completed probes.
	// Labels: service (ping, ssh, web, active_directory), status (success, failure)
	ProbesTotal *prometheus.CounterVec

	// ProbeDurationSeconds measures individual probe latency.
	// Labels: service
	ProbeDurationSeconds *prometheus.HistogramVec

	// ActiveProbes tracks probes currently in flight.
	ActiveProbes prometheus.Gauge

	// CyclesTotal counts completed grading cycles.
	CyclesTotal prometheus.Counter

	// CycleDurationSeconds measures full-cycle wall time (dispatch
	// through snapshot publication).
	CycleDurationSeconds prometheus.Histogram

	// ScenariosSkippedTotal counts scenarios skipped for unknown
	// service kinds.
	ScenariosSkippedTotal prometheus.Counter

	// Subscribers tracks connected websocket viewers.
	Subscribers prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *GradingMetrics

// InitMetrics creates and registers all grading metrics. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *GradingMetrics {
	DefaultMetrics = &GradingMetrics{
		ProbesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "probes_total",
				Help:      "Completed probes by service kind and outcome",
			},
			[]string{"service", "status"},
		),

		ProbeDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "probe_duration_seconds",
				Help:      "Individual probe latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"service"},
		),

		ActiveProbes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "active_probes",
				Help:      "Probes currently in flight",
			},
		),

		CyclesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "cycles_total",
				Help:      "Completed grading cycles",
			},
		),

		CycleDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "cycle_duration_seconds",
				Help:      "Full grading cycle wall time in seconds",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
		),

		ScenariosSkippedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "scenarios_skipped_total",
				Help:      "Scenarios skipped for unknown service kinds",
			},
		),

		Subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gradingSubsystem,
				Name:      "subscribers",
				Help:      "Connected websocket scoreboard viewers",
			},
		),
	}

	return DefaultMetrics
}

// RecordProbe records one completed probe.
func (m *GradingMetrics) RecordProbe(service string, ok bool, seconds float64) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.ProbesTotal.WithLabelValues(service, status).Inc()
	m.ProbeDurationSeconds.WithLabelValues(service).Observe(seconds)
}

// RecordCycle records one completed grading cycle.
func (m *GradingMetrics) RecordCycle(seconds float64) {
	m.CyclesTotal.Inc()
	m.CycleDurationSeconds.Observe(seconds)
}

// ProbeStarted increments the in-flight probe gauge.
func (m *GradingMetrics) ProbeStarted() { m.ActiveProbes.Inc() }

// ProbeEnded decrements the in-flight probe gauge.
func (m *GradingMetrics) ProbeEnded() { m.ActiveProbes.Dec() }

// RecordSkip counts an unknown-kind scenario skip.
func (m *GradingMetrics) RecordSkip() { m.ScenariosSkippedTotal.Inc() }

// SubscriberConnected increments the viewer gauge.
func (m *GradingMetrics) SubscriberConnected() { m.Subscribers.Inc() }

// SubscriberDisconnected decrements the viewer gauge.
func (m *GradingMetrics) SubscriberDisconnected() { m.Subscribers.Dec() }
