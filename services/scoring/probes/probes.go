// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package probes implements the per-service availability checkers.
//
// Every probe satisfies the same contract: given a resolved scenario it
// returns (ok, detail) within the scenario's timeout, converting any
// transport, protocol, or library failure into a diagnostic string. A
// probe never panics past its boundary and never returns an error: probe
// failure is the measurement, not an exceptional condition.
package probes

import (
	"context"
	"fmt"
	"time"
)

// Service kinds form a closed set. Scenarios with any other kind are
// skipped by the scheduler so future kinds can ship in config ahead of
// engine support.
const (
	KindPing      = "ping"
	KindSSH       = "ssh"
	KindWeb       = "web"
	KindDirectory = "active_directory"
)

// Result is the uniform probe outcome. Detail carries raw output on
// success and the failure diagnostic otherwise; the ledger records it
// verbatim.
type Result struct {
	OK     bool
	Detail string
}

// Target carries the resolved probe parameters. It mirrors the scenario
// fields the checkers need, without importing the catalog package.
type Target struct {
	Address  string
	Port     int
	Username string
	Password string
	Domain   string
	Timeout  time.Duration
}

// registry maps service kind to checker. A lookup miss means "skip",
// never "fail".
var registry = map[string]Func{
	KindPing:      Ping,
	KindSSH:       SSH,
	KindWeb:       Web,
	KindDirectory: DirectoryBind,
}

// Func is a single protocol checker.
type Func func(ctx context.Context, t Target) Result

// Lookup returns the checker for a service kind. The returned Func is
// wrapped so a panicking checker degrades to a failed Result instead of
// taking down the grading cycle.
func Lookup(kind string) (Func, bool) {
	fn, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return guard(fn), true
}

// Kinds returns the supported service kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}

func guard(fn Func) Func {
	return func(ctx context.Context, t Target) (res Result) {
		defer func() {
			if r := recover(); r != nil {
				res = Result{OK: false, Detail: fmt.Sprintf("probe panic: %v", r)}
			}
		}()
		return fn(ctx, t)
	}
}
