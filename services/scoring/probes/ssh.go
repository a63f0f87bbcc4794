// Copyright (C) 2025 RangeOps (ops@rangeops.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package probes

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// sshCheckCommand is the trivial command run over the session to prove
// the shell works, not just the handshake.
const sshCheckCommand = "ls"

// SSH opens an authenticated session with the scenario's credentials and
// runs a trivial listing command. Success requires the connection, the
// auth exchange, and the command to complete with an empty stderr.
//
// The whole exchange runs under a single connection deadline, so a host
// that accepts TCP but stalls the SSH handshake still fails within the
// scenario timeout.
func SSH(ctx context.Context, t Target) Result {
	addr := net.JoinHostPort(t.Address, fmt.Sprintf("%d", t.Port))

	dialer := net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	defer conn.Close()

	deadline := time.Now().Add(t.Timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return Result{OK: false, Detail: err.Error()}
	}

	clientConfig := &ssh.ClientConfig{
		User:            t.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(t.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // graded hosts rotate keys freely
		Timeout:         t.Timeout,
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Run(sshCheckCommand); err != nil {
		return Result{OK: false, Detail: err.Error()}
	}
	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		return Result{OK: false, Detail: errText}
	}
	return Result{OK: true, Detail: stdout.String()}
}
