// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package execs

import (
	"context"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/errors"
)

const (
	// Default timeout for short checks run on the host.
	defaultCheckTimeout = 30 * time.Second
	// Default number of ping packets.
	defaultPingCount = 2
)

// timeout provides the timeout of commands for the exec.
func (ei *ExecInfo) timeout(defaultValue time.Duration) time.Duration {
	if ei.Timeout > 0 {
		return ei.Timeout
	}
	return defaultValue
}

// pingExec verifies that the host responds to ping.
//
// Args:
//
//	count:2 - number of packets.
func pingExec(ctx context.Context, info *ExecInfo) error {
	count := info.GetActionArgs(ctx).AsInt(ctx, "count", defaultPingCount)
	return errors.Annotate(info.Host.Ping(ctx, count), "ping").Err()
}

// sshExec verifies that commands can be run on the host.
func sshExec(ctx context.Context, info *ExecInfo) error {
	run := info.NewRunner()
	_, err := run(ctx, info.timeout(defaultCheckTimeout), "true")
	return errors.Annotate(err, "ssh").Err()
}

// cmdSucceedsExec verifies that the command finishes with exit code 0.
//
// Args:
//
//	cmd:<command line> - required.
//	output:<substring> - optional, the output has to contain it.
func cmdSucceedsExec(ctx context.Context, info *ExecInfo) error {
	args := info.GetActionArgs(ctx)
	cmd, cmdArgs, err := splitCommand(args.AsString(ctx, "cmd", ""))
	if err != nil {
		return errors.Annotate(err, "cmd succeeds").Err()
	}
	run := info.NewRunner()
	out, err := run(ctx, info.timeout(defaultCheckTimeout), cmd, cmdArgs...)
	if err != nil {
		return errors.Annotate(err, "cmd succeeds").Err()
	}
	if want := args.AsString(ctx, "output", ""); want != "" && !strings.Contains(out, want) {
		return errors.Reason("cmd succeeds: output of %q does not contain %q", cmd, want).Err()
	}
	return nil
}

// pythonPresentExec verifies that python is installed on the host.
func pythonPresentExec(ctx context.Context, info *ExecInfo) error {
	run := info.NewRunner()
	var errs errors.MultiError
	for _, p := range []string{"python3", "python"} {
		if _, err := run(ctx, info.timeout(defaultCheckTimeout), p, "--version"); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Annotate(errs, "python present").Err()
}

// diskSpaceExec verifies that the filesystem has enough free space.
//
// Args:
//
//	path:/ - path on the filesystem to check.
//	min:1GB - minimum free space.
func diskSpaceExec(ctx context.Context, info *ExecInfo) error {
	args := info.GetActionArgs(ctx)
	p := args.AsString(ctx, "path", "/")
	minFree := args.AsBytes(ctx, "min", humanize.GByte)
	run := info.NewRunner()
	out, err := run(ctx, info.timeout(defaultCheckTimeout), "df", "-P", "-B1", p)
	if err != nil {
		return errors.Annotate(err, "disk space %q", p).Err()
	}
	free, err := parseDFAvailable(out)
	if err != nil {
		return errors.Annotate(err, "disk space %q", p).Err()
	}
	if free < minFree {
		return errors.Reason("disk space %q: %s free, expected at least %s", p, humanize.Bytes(free), humanize.Bytes(minFree)).Err()
	}
	return nil
}

// parseDFAvailable reads the available bytes from `df -P -B1` output.
//
// Output example:
//
//	Filesystem     1-blocks       Used  Available Capacity Mounted on
//	/dev/sda1   41152736256 6421184512 32615587840      17% /
func parseDFAvailable(out string) (uint64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, errors.Reason("parse df: unexpected output %q", out).Err()
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 4 {
		return 0, errors.Reason("parse df: unexpected line %q", lines[len(lines)-1]).Err()
	}
	v, err := strconv.ParseUint(fields[3], 10, 64)
	return v, errors.Annotate(err, "parse df").Err()
}

// pathWritableExec verifies that a file can be created in the directory.
//
// Args:
//
//	path:/tmp - directory to check.
func pathWritableExec(ctx context.Context, info *ExecInfo) error {
	dir := info.GetActionArgs(ctx).AsString(ctx, "path", "/tmp")
	f := path.Join(dir, ".hostrepair_write_check")
	run := info.NewRunner()
	if _, err := run(ctx, info.timeout(defaultCheckTimeout), "touch", f); err != nil {
		return errors.Annotate(err, "path writable %q", dir).Err()
	}
	if _, err := run(ctx, info.timeout(defaultCheckTimeout), "rm", "-f", f); err != nil {
		return errors.Annotate(err, "path writable %q", dir).Err()
	}
	return nil
}

// hostnameExec verifies that the host reports the expected hostname.
// Only the short name is compared.
func hostnameExec(ctx context.Context, info *ExecInfo) error {
	run := info.NewRunner()
	out, err := run(ctx, info.timeout(defaultCheckTimeout), "hostname")
	if err != nil {
		return errors.Annotate(err, "hostname").Err()
	}
	want := shortName(info.Host.Hostname())
	if got := shortName(out); got != want {
		return errors.Reason("hostname: host reports %q, expected %q", got, want).Err()
	}
	return nil
}

func shortName(name string) string {
	return strings.SplitN(strings.TrimSpace(name), ".", 2)[0]
}

func init() {
	Register("host_ping", pingExec)
	Register("host_ssh", sshExec)
	Register("cmd_succeeds", cmdSucceedsExec)
	Register("python_present", pythonPresentExec)
	Register("disk_space", diskSpaceExec)
	Register("path_writable", pathWritableExec)
	Register("hostname_matches", hostnameExec)
}
