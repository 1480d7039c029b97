// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package hostlock serializes runs against the same host on one machine.
package hostlock

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danjacques/gofslock/fslock"
	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/data/rand/mathrand"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
)

// RetryTag is the clock tag of waits between attempts to grab the lock.
const RetryTag = "hostlock-retry"

// Acquire grabs the lock file of the host in the directory and returns a
// function that releases it. It waits for other runs to release the lock
// for up to giveUpTimeout.
func Acquire(ctx context.Context, dir, hostname string, giveUpTimeout time.Duration) (unlock func() error, err error) {
	if hostname == "" {
		return nil, errors.Reason("acquire host lock: hostname is not provided").Err()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Annotate(err, "acquire host lock %q", hostname).Err()
	}
	start := clock.Now(ctx)
	attempt := 0
	l := fslock.L{
		Path: Path(dir, hostname),
		Block: fslock.Blocker(func() error {
			attempt++
			if clock.Since(ctx, start) >= giveUpTimeout {
				return errors.Reason("gave up after %d attempts", attempt).Err()
			}
			delay := 5*time.Second + time.Duration(mathrand.Int63n(ctx, int64(5*time.Second)))
			log.Warningf(ctx, "Failed to grab lock of %q on attempt %d, retrying after %s...", hostname, attempt, delay)
			tr := clock.Sleep(clock.Tag(ctx, RetryTag), delay)
			return tr.Err
		}),
	}
	handle, err := l.Lock()
	if err != nil {
		return nil, errors.Annotate(err, "acquire host lock %q", hostname).Err()
	}
	log.Debugf(ctx, "Acquired lock of %q.", hostname)
	return handle.Unlock, nil
}

// Path provides the path of the lock file of the host.
func Path(dir, hostname string) string {
	name := strings.NewReplacer("/", "_", ":", "_").Replace(hostname)
	return filepath.Join(dir, name+".lock")
}
