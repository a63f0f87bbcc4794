// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package probes

import (
	"context"
	"fmt"

	probing "github.com/prometheus-community/pro-bing"
)

// pingCount is the fixed number of echo requests per probe.
const pingCount = 4

// Ping sends a fixed burst of ICMP echo requests. Success requires every
// request answered within the timeout; partial loss counts as failure so
// a flapping host doesn't score as up.
//
// Requires raw-socket privileges (the engine runs as root inside the
// scoring container, matching the echo semantics of ping(1)).
func Ping(ctx context.Context, t Target) Result {
	pinger, err := probing.NewPinger(t.Address)
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	pinger.Count = pingCount
	pinger.Timeout = t.Timeout
	pinger.SetPrivileged(true)

	if err := pinger.RunWithContext(ctx); err != nil {
		return Result{OK: false, Detail: err.Error()}
	}

	stats := pinger.Statistics()
	detail := fmt.Sprintf("%d packets transmitted, %d received, %.0f%% packet loss, avg rtt %s",
		stats.PacketsSent, stats.PacketsRecv, stats.PacketLoss, stats.AvgRtt)
	if stats.PacketsRecv == pingCount {
		return Result{OK: true, Detail: detail}
	}
	return Result{OK: false, Detail: detail}
}
