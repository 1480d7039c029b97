// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package hostlock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/clock/testclock"
	. "go.chromium.org/luci/common/testing/assertions"
)

func TestAcquire(t *testing.T) {
	t.Parallel()
	Convey("Host lock", t, func() {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		tc.SetTimerCallback(func(d time.Duration, t clock.Timer) {
			if testclock.HasTags(t, RetryTag) {
				tc.Add(d)
			}
		})
		dir := filepath.Join(t.TempDir(), "locks")

		unlock, err := Acquire(ctx, dir, "host1", time.Minute)
		So(err, ShouldBeNil)

		Convey("other hosts are not blocked", func() {
			unlock2, err := Acquire(ctx, dir, "host2", time.Minute)
			So(err, ShouldBeNil)
			So(unlock2(), ShouldBeNil)
			So(unlock(), ShouldBeNil)
		})
		Convey("same host waits and gives up", func() {
			_, err := Acquire(ctx, dir, "host1", 20*time.Second)
			So(err, ShouldErrLike, "gave up after")
			So(unlock(), ShouldBeNil)
		})
		Convey("lock is free after unlock", func() {
			So(unlock(), ShouldBeNil)
			unlock2, err := Acquire(ctx, dir, "host1", time.Minute)
			So(err, ShouldBeNil)
			So(unlock2(), ShouldBeNil)
		})
	})
	Convey("Hostname is required", t, func() {
		_, err := Acquire(context.Background(), t.TempDir(), "", time.Minute)
		So(err, ShouldErrLike, "hostname is not provided")
	})
}

func TestPath(t *testing.T) {
	t.Parallel()
	if got, want := Path("/tmp/locks", "[::1]:22"), "/tmp/locks/[__1]_22.lock"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
