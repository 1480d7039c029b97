// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package execs

import (
	"context"
	"strings"
	"time"

	"github.com/google/shlex"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

var (
	// SSHErrorCLINotFound tags exit code 127: command not found on the host.
	SSHErrorCLINotFound = errors.BoolTag{Key: errors.NewTagKey("ssh_error_cli_not_found")}
	// SSHErrorLinuxTimeout tags exit code 124: command did not finish in time.
	SSHErrorLinuxTimeout = errors.BoolTag{Key: errors.NewTagKey("linux_timeout")}
	// GeneralError tags any other non-zero exit code of the command.
	GeneralError = errors.BoolTag{Key: errors.NewTagKey("general_error")}
	// SSHErrorInternal tags every failure of the transport (negative codes).
	SSHErrorInternal = errors.BoolTag{Key: errors.NewTagKey("ssh_error_internal")}
	// FailToCreateSSHErrorInternal tags exit code -1: no client or session.
	FailToCreateSSHErrorInternal = errors.BoolTag{Key: errors.NewTagKey("fail_to_create_ssh_error_internal")}
	// NoExitStatusErrorInternal tags exit code -2: session dropped without exit status.
	// Expected when the host goes down, e.g. during reboot.
	NoExitStatusErrorInternal = errors.BoolTag{Key: errors.NewTagKey("no_exit_status_error_internal")}
	// OtherErrorInternal tags exit code -3: other transport errors.
	OtherErrorInternal = errors.BoolTag{Key: errors.NewTagKey("other_error_internal")}
)

// exitCodeTags provides tags which classify the exit code.
func exitCodeTags(code int) []errors.BoolTag {
	switch {
	case code == -1:
		return []errors.BoolTag{SSHErrorInternal, FailToCreateSSHErrorInternal}
	case code == -2:
		return []errors.BoolTag{SSHErrorInternal, NoExitStatusErrorInternal}
	case code == -3:
		return []errors.BoolTag{SSHErrorInternal, OtherErrorInternal}
	case code < 0:
		return []errors.BoolTag{SSHErrorInternal}
	case code == 124:
		return []errors.BoolTag{SSHErrorLinuxTimeout}
	case code == 127:
		return []errors.BoolTag{SSHErrorCLINotFound}
	default:
		return []errors.BoolTag{GeneralError}
	}
}

// Runner executes a command on the host and returns its trimmed stdout.
type Runner func(ctx context.Context, timeout time.Duration, cmd string, args ...string) (string, error)

// NewRunner returns a Runner bound to the host of the exec.
// Non-zero exit codes become errors tagged by exitCodeTags.
func (ei *ExecInfo) NewRunner() Runner {
	return func(ctx context.Context, timeout time.Duration, cmd string, args ...string) (string, error) {
		log.Debugf(ctx, "Run command %q", cmd)
		r := ei.Host.Run(ctx, &tlw.RunRequest{
			Command: cmd,
			Args:    args,
			Timeout: timeout,
		})
		if r.ExitCode != 0 {
			rb := errors.Reason("runner: command %q completed with exit code %d: %s", r.Command, r.ExitCode, strings.TrimSpace(r.Stderr))
			for _, t := range exitCodeTags(r.ExitCode) {
				rb = rb.Tag(t)
			}
			return "", rb.Err()
		}
		out := strings.TrimSpace(r.Stdout)
		log.Debugf(ctx, "Run output:\n%s", out)
		return out, nil
	}
}

// splitCommand splits a command line into the command and its arguments.
func splitCommand(line string) (string, []string, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return "", nil, errors.Annotate(err, "split command %q", line).Err()
	}
	if len(parts) == 0 {
		return "", nil, errors.Reason("split command: command is empty").Err()
	}
	return parts[0], parts[1:], nil
}
