// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// InitMetrics registers into the default registry, so it runs once for
// the whole test binary.
var metrics = InitMetrics()

func TestInitMetrics_SetsSingleton(t *testing.T) {
	if DefaultMetrics == nil {
		t.Fatal("InitMetrics must set DefaultMetrics")
	}
	if DefaultMetrics != metrics {
		t.Error("DefaultMetrics should be the returned instance")
	}
}

func TestRecordProbe(t *testing.T) {
	metrics.RecordProbe("ssh", true, 0.2)
	metrics.RecordProbe("ssh", true, 0.3)
	metrics.RecordProbe("ssh", false, 1.5)

	success := testutil.ToFloat64(metrics.ProbesTotal.WithLabelValues("ssh", "success"))
	failure := testutil.ToFloat64(metrics.ProbesTotal.WithLabelValues("ssh", "failure"))
	if success != 2 || failure != 1 {
		t.Errorf("probe counters = %v success, %v failure", success, failure)
	}
}

func TestActiveProbesGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActiveProbes)
	metrics.ProbeStarted()
	metrics.ProbeStarted()
	if got := testutil.ToFloat64(metrics.ActiveProbes); got != before+2 {
		t.Errorf("gauge after two starts = %v, want %v", got, before+2)
	}
	metrics.ProbeEnded()
	metrics.ProbeEnded()
	if got := testutil.ToFloat64(metrics.ActiveProbes); got != before {
		t.Errorf("gauge after balanced ends = %v, want %v", got, before)
	}
}

func TestSubscriberGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.Subscribers)
	metrics.SubscriberConnected()
	metrics.SubscriberDisconnected()
	if got := testutil.ToFloat64(metrics.Subscribers); got != before {
		t.Errorf("subscriber gauge = %v, want %v", got, before)
	}
}
