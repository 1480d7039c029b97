// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tlw provides an abstract representation of the target host which
// verifiers and repair actions work against.
package tlw

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Host represents a single target device.
//
// The repair engine never mutates the host directly. Verifiers and repair
// actions run commands against it, and the engine writes its audit trail to
// the host status log.
type Host interface {
	// Hostname provides the name used to reach the host.
	// Eg: lab1-row1-rack1-device1
	Hostname() string
	// Board provides the board label of the host.
	// Empty when the board is not known.
	Board() string
	// Ping performs ping of the host.
	Ping(ctx context.Context, count int) error
	// Run executes a command on the host.
	Run(ctx context.Context, req *RunRequest) *RunResult
	// RecordStatus appends a record to the host status log.
	RecordStatus(ctx context.Context, rec *StatusRecord)
}

// RunRequest represents a command to execute on the host.
type RunRequest struct {
	// Command to run.
	Command string
	// Arguments of the command. Each one reaches the command unchanged,
	// while Command itself is read by the shell as is.
	Args []string
	// Timeout of execution. Zero means the default timeout of the implementation.
	Timeout time.Duration
}

// safeArg matches arguments which the shell reads unchanged.
var safeArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// CommandLine provides the shell line of the request.
// Command is kept as is, every argument is quoted for a POSIX shell.
func (r *RunRequest) CommandLine() string {
	parts := []string{r.Command}
	for _, a := range r.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(a string) string {
	if safeArg.MatchString(a) {
		return a
	}
	return "'" + strings.ReplaceAll(a, "'", `'"'"'`) + "'"
}

// RunResult represents result of executed command.
type RunResult struct {
	// Command executed on the host.
	Command string
	// Exit code return.
	// Eg: 0 - everything is good
	// 	   1 - executed stop with error code `1`
	//     124 - timeout of execution
	//     -1 - fail to create a session
	ExitCode int
	// Standard output
	Stdout string
	// Standard error output
	Stderr string
}

// StatusCode is the code of a status log record.
type StatusCode string

const (
	// StatusGood marks a passed verifier or an overall pass.
	StatusGood StatusCode = "GOOD"
	// StatusFail marks a failed verifier or a failed repair exec.
	StatusFail StatusCode = "FAIL"
	// StatusStart marks the beginning of a repair attempt.
	StatusStart StatusCode = "START"
	// StatusEndGood marks a repair attempt which fixed its triggers.
	StatusEndGood StatusCode = "END GOOD"
	// StatusEndFail marks a repair attempt which did not fix its triggers.
	StatusEndFail StatusCode = "END FAIL"
)

// StatusRecord is a single entry of the host status log.
type StatusRecord struct {
	// Status code of the record.
	Status StatusCode
	// Subdir is the namespaced tag of the node which produced the record.
	// Eg: verify.ssh, repair.reboot
	Subdir string
	// Operation is a short name of what was done.
	Operation string
	// Message provides details. For failures it holds the error text.
	Message string
}
