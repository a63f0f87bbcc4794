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
	"net"

	"github.com/go-ldap/ldap/v3"
)

const defaultLDAPPort = 389

// DirectoryBind attempts a simple LDAP bind against the team's directory
// service. Success means the directory accepted the configured
// credentials; the failure detail carries the server's result diagnostics
// so teams can tell a dead DC from a locked account.
func DirectoryBind(ctx context.Context, t Target) Result {
	port := t.Port
	if port == 0 {
		port = defaultLDAPPort
	}
	url := fmt.Sprintf("ldap://%s", net.JoinHostPort(t.Address, fmt.Sprintf("%d", port)))

	conn, err := ldap.DialURL(url, ldap.DialWithDialer(&net.Dialer{Timeout: t.Timeout}))
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	defer conn.Close()
	conn.SetTimeout(t.Timeout)

	bindUser := t.Username
	if t.Domain != "" {
		bindUser = fmt.Sprintf("%s@%s", t.Username, t.Domain)
	}

	if err := conn.Bind(bindUser, t.Password); err != nil {
		return Result{OK: false, Detail: fmt.Sprintf("Authentication failed: %v", err)}
	}
	return Result{OK: true, Detail: "Authentication successful"}
}
