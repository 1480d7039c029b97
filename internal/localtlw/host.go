// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package localtlw provides an implementation of tlw.Host which reaches
// the target over SSH from the machine running the repair.
package localtlw

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

const (
	// Default SSH port of the host.
	defaultPort = 22
	// Default user to log in.
	defaultUser = "root"
	// Timeout to establish a connection.
	defaultConnectTimeout = 10 * time.Second
	// Max limit for any command when the request does not provide one.
	defaultRunTimeout = time.Hour
)

// Options describes how to reach the host.
type Options struct {
	// Hostname or IP address of the host.
	Hostname string
	// Port of the SSH server. Zero means 22.
	Port int
	// User to log in. Empty means root.
	User string
	// KeyFile is the path to the private key.
	KeyFile string
	// Board label of the host, used for metrics.
	Board string
	// StatusLog receives the status log. Optional.
	StatusLog io.Writer
	// ConnectTimeout limits establishing of connections. Zero means 10 seconds.
	ConnectTimeout time.Duration
}

// Host is a tlw.Host reached by SSH.
type Host struct {
	hostname string
	addr     string
	board    string
	pool     *sshClientPool
	status   *statusLog
}

var _ tlw.Host = (*Host)(nil)

// New creates a host from the options.
// The caller must Close the host after use.
func New(o *Options) (*Host, error) {
	if o == nil || o.Hostname == "" {
		return nil, errors.Reason("new host: hostname is not provided").Err()
	}
	port := o.Port
	if port == 0 {
		port = defaultPort
	}
	user := o.User
	if user == "" {
		user = defaultUser
	}
	timeout := o.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}
	config, err := sshConfig(user, o.KeyFile, timeout)
	if err != nil {
		return nil, errors.Annotate(err, "new host %q", o.Hostname).Err()
	}
	h := &Host{
		hostname: o.Hostname,
		addr:     net.JoinHostPort(o.Hostname, strconv.Itoa(port)),
		board:    o.Board,
		pool:     newSSHClientPool(config),
	}
	if o.StatusLog != nil {
		h.status = newStatusLog(o.StatusLog)
	}
	return h, nil
}

// OpenStatusLog opens the status log file for appending.
func OpenStatusLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	return f, errors.Annotate(err, "open status log").Err()
}

// Close closes the pooled connections.
func (h *Host) Close() error {
	return h.pool.Close()
}

// Hostname provides the name used to reach the host.
func (h *Host) Hostname() string {
	return h.hostname
}

// Board provides the board label of the host.
func (h *Host) Board() string {
	return h.board
}

// Ping performs ping of the host.
func (h *Host) Ping(ctx context.Context, count int) error {
	return errors.Annotate(ping(ctx, h.hostname, count), "ping").Err()
}

// Run executes command on the host by SSH.
//
// The arguments are quoted and the line is run by the login shell.
func (h *Host) Run(ctx context.Context, req *tlw.RunRequest) *tlw.RunResult {
	fullCmd := req.CommandLine()
	timeout := defaultRunTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cr := make(chan *tlw.RunResult, 1)
	go func() {
		cr <- runSSH(ctx, h.pool, h.addr, fullCmd)
	}()
	select {
	case r := <-cr:
		return r
	case <-ctx.Done():
		// If we reached timeout first. runSSH closes the session and drops
		// the client in the background.
		return &tlw.RunResult{
			Command:  fullCmd,
			ExitCode: 124,
			Stderr:   fmt.Sprintf("run: exceeded timeout %s", timeout),
		}
	}
}

// RecordStatus appends a record to the status log.
func (h *Host) RecordStatus(ctx context.Context, rec *tlw.StatusRecord) {
	log.Debugf(ctx, "Status %s %s: %s", rec.Status, rec.Subdir, rec.Message)
	if h.status == nil {
		return
	}
	if err := h.status.write(ctx, rec); err != nil {
		log.Errorf(ctx, "Record status: %s", err)
	}
}
