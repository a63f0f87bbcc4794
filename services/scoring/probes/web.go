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
	"io"
	"net"
	"net/http"
)

// Web issues a plain GET against the team's web service. Success is a
// 200 exactly; any other status fails with its reason phrase, so a 302
// to a defacement page or a 503 from a crashed backend is visible on the
// scoreboard as text, not just a zero.
func Web(ctx context.Context, t Target) Result {
	url := fmt.Sprintf("http://%s", net.JoinHostPort(t.Address, fmt.Sprintf("%d", t.Port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}

	client := &http.Client{
		Timeout: t.Timeout,
		// Redirects are not followed: a redirect is not a 200.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := http.StatusText(resp.StatusCode)
		if reason == "" {
			reason = resp.Status
		}
		return Result{OK: false, Detail: reason}
	}

	// Cap the read: the detail is diagnostic, not an archive.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return Result{OK: true, Detail: string(body)}
}
