// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package faketlw provides an in-memory implementation of tlw.Host for tests.
package faketlw

import (
	"context"
	"fmt"

	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/tlw"
)

// Host is a fake host which keeps the status log in memory.
type Host struct {
	Name      string
	BoardName string
	// PingErr is returned by Ping.
	PingErr error
	// Commands maps a full command line to its result.
	// Unknown commands finish with exit code 127.
	Commands map[string]*tlw.RunResult
	// Executed lists every command line in execution order.
	Executed []string
	// Records lists every status record in order.
	Records []*tlw.StatusRecord
}

// New creates a fake host with the given name.
func New(name string) *Host {
	return &Host{
		Name:     name,
		Commands: make(map[string]*tlw.RunResult),
	}
}

// Hostname provides the name used to reach the host.
func (h *Host) Hostname() string {
	return h.Name
}

// Board provides the board label of the host.
func (h *Host) Board() string {
	return h.BoardName
}

// Ping performs fake ping.
func (h *Host) Ping(ctx context.Context, count int) error {
	if count <= 0 {
		return errors.Reason("ping %q: count must be positive", h.Name).Err()
	}
	return h.PingErr
}

// Run looks up the command result.
func (h *Host) Run(ctx context.Context, req *tlw.RunRequest) *tlw.RunResult {
	line := req.CommandLine()
	h.Executed = append(h.Executed, line)
	if r, ok := h.Commands[line]; ok {
		c := *r
		c.Command = line
		return &c
	}
	return &tlw.RunResult{
		Command:  line,
		ExitCode: 127,
		Stderr:   fmt.Sprintf("%s: command not found", req.Command),
	}
}

// SetCommand sets result for the command line.
func (h *Host) SetCommand(line string, exitCode int, stdout string) {
	h.Commands[line] = &tlw.RunResult{
		ExitCode: exitCode,
		Stdout:   stdout,
	}
}

// RecordStatus appends a record to the in-memory status log.
func (h *Host) RecordStatus(ctx context.Context, rec *tlw.StatusRecord) {
	h.Records = append(h.Records, rec)
}

// StatusLines renders records as "<status> <subdir>" lines for comparison in tests.
func (h *Host) StatusLines() []string {
	var lines []string
	for _, r := range h.Records {
		lines = append(lines, fmt.Sprintf("%s %s", r.Status, r.Subdir))
	}
	return lines
}
