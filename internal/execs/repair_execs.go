// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package execs

import (
	"context"
	"strconv"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/internal/retry"
)

// rebootDelayTag is the clock tag of the wait after the reboot request.
const rebootDelayTag = "reboot-delay"

const (
	// Time to let the host go down after the reboot request.
	defaultRebootDelay = 10 * time.Second
	// Time to wait for the host to come back after the reboot.
	defaultRebootTimeout = 5 * time.Minute
	// Interval between checks that the host is back.
	rebootCheckInterval = 5 * time.Second
	// Default timeout for repair commands.
	defaultRepairTimeout = 5 * time.Minute
)

// rebootExec reboots the host and waits until it accepts commands again.
//
// Args:
//
//	delay:10 - seconds to wait before checking the host.
//	timeout:300 - seconds to wait for the host to come back.
func rebootExec(ctx context.Context, info *ExecInfo) error {
	args := info.GetActionArgs(ctx)
	run := info.NewRunner()
	log.Infof(ctx, "Reboot %q: started.", info.Host.Hostname())
	if _, err := run(ctx, 10*time.Second, "reboot"); err != nil {
		// The session is usually dropped by the reboot itself.
		if !SSHErrorInternal.In(err) {
			return errors.Annotate(err, "reboot").Err()
		}
		log.Debugf(ctx, "Reboot %q: session dropped: %s", info.Host.Hostname(), err)
	}
	if r := clock.Sleep(clock.Tag(ctx, rebootDelayTag), args.AsDuration(ctx, "delay", defaultRebootDelay)); r.Incomplete() {
		return errors.Annotate(r.Err, "reboot").Err()
	}
	err := retry.WithTimeout(ctx, rebootCheckInterval, args.AsDuration(ctx, "timeout", defaultRebootTimeout), func() error {
		_, err := run(ctx, 10*time.Second, "true")
		return err
	}, "wait host up after reboot")
	return errors.Annotate(err, "reboot").Err()
}

// runCmdExec runs the command on the host.
//
// Args:
//
//	cmd:<command line> - required.
func runCmdExec(ctx context.Context, info *ExecInfo) error {
	cmd, cmdArgs, err := splitCommand(info.GetActionArgs(ctx).AsString(ctx, "cmd", ""))
	if err != nil {
		return errors.Annotate(err, "run cmd").Err()
	}
	run := info.NewRunner()
	_, err = run(ctx, info.timeout(defaultRepairTimeout), cmd, cmdArgs...)
	return errors.Annotate(err, "run cmd").Err()
}

// cleanTmpExec removes old files from a temporary directory.
//
// Args:
//
//	path:/tmp - directory to clean.
//	days:1 - remove files older than this number of days.
func cleanTmpExec(ctx context.Context, info *ExecInfo) error {
	args := info.GetActionArgs(ctx)
	dir := args.AsString(ctx, "path", "/tmp")
	days := args.AsInt(ctx, "days", 1)
	run := info.NewRunner()
	_, err := run(ctx, info.timeout(defaultRepairTimeout), "find", dir, "-mindepth", "1", "-mtime", "+"+strconv.Itoa(days), "-delete")
	return errors.Annotate(err, "clean tmp %q", dir).Err()
}

// restartServiceExec restarts a system service.
//
// Args:
//
//	service:<name> - required.
func restartServiceExec(ctx context.Context, info *ExecInfo) error {
	service := info.GetActionArgs(ctx).AsString(ctx, "service", "")
	if service == "" {
		return errors.Reason("restart service: service is not provided").Err()
	}
	run := info.NewRunner()
	_, err := run(ctx, info.timeout(defaultRepairTimeout), "systemctl", "restart", service)
	return errors.Annotate(err, "restart service %q", service).Err()
}

func init() {
	Register("host_reboot", rebootExec)
	Register("run_cmd", runCmdExec)
	Register("clean_tmp", cleanTmpExec)
	Register("restart_service", restartServiceExec)
}
