// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package localtlw

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/clock/testclock"
	. "go.chromium.org/luci/common/testing/assertions"

	"infra/cros/hostrepair/tlw"
)

func TestHostRun(t *testing.T) {
	Convey("Run commands over ssh", t, func() {
		ctx := context.Background()
		stub := startSSHStub(t, map[string]stubResult{
			"true":              {},
			"cat /etc/hostname": {output: "host1\n"},
			"false":             {exitStatus: 1},
			"sleep 100":         {hang: true},
			"reboot":            {noStatus: true},
		})
		h, err := New(&Options{Hostname: "127.0.0.1", Port: stub.port(), Board: "eve"})
		So(err, ShouldBeNil)
		defer h.Close()
		So(h.Hostname(), ShouldEqual, "127.0.0.1")
		So(h.Board(), ShouldEqual, "eve")

		Convey("success", func() {
			r := h.Run(ctx, &tlw.RunRequest{Command: "cat", Args: []string{"/etc/hostname"}})
			So(r.ExitCode, ShouldEqual, 0)
			So(r.Stdout, ShouldEqual, "host1\n")
			So(r.Command, ShouldEqual, "cat /etc/hostname")
		})
		Convey("exit status is passed", func() {
			So(h.Run(ctx, &tlw.RunRequest{Command: "false"}).ExitCode, ShouldEqual, 1)
			So(h.Run(ctx, &tlw.RunRequest{Command: "missing"}).ExitCode, ShouldEqual, 127)
		})
		Convey("missing exit status", func() {
			So(h.Run(ctx, &tlw.RunRequest{Command: "reboot"}).ExitCode, ShouldEqual, -2)
		})
		Convey("timeout", func() {
			r := h.Run(ctx, &tlw.RunRequest{Command: "sleep", Args: []string{"100"}, Timeout: 100 * time.Millisecond})
			So(r.ExitCode, ShouldEqual, 124)

			Convey("the hung session is closed", func() {
				deadline := time.Now().Add(5 * time.Second)
				for stub.hangsReleased() == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(stub.hangsReleased(), ShouldEqual, 1)
				So(h.Run(ctx, &tlw.RunRequest{Command: "true"}).ExitCode, ShouldEqual, 0)
				So(stub.connections(), ShouldEqual, 2)
			})
		})
		Convey("arguments are quoted", func() {
			r := h.Run(ctx, &tlw.RunRequest{Command: "sh", Args: []string{"-c", "echo a; rm -rf /tmp/x"}})
			So(r.Command, ShouldEqual, "sh -c 'echo a; rm -rf /tmp/x'")
			So(stub.commandsReceived(), ShouldResemble, []string{"sh -c 'echo a; rm -rf /tmp/x'"})
		})
		Convey("clients are reused", func() {
			for i := 0; i < 3; i++ {
				So(h.Run(ctx, &tlw.RunRequest{Command: "true"}).ExitCode, ShouldEqual, 0)
			}
			So(stub.connections(), ShouldEqual, 1)
			So(stub.commandsReceived(), ShouldResemble, []string{"true", "true", "true"})
		})
	})
	Convey("Unreachable host", t, func() {
		h, err := New(&Options{Hostname: "127.0.0.1", Port: 1, ConnectTimeout: time.Second})
		So(err, ShouldBeNil)
		defer h.Close()
		r := h.Run(context.Background(), &tlw.RunRequest{Command: "true"})
		So(r.ExitCode, ShouldEqual, -1)
		So(r.Stderr, ShouldContainSubstring, "get ssh client")
	})
}

func TestNew(t *testing.T) {
	t.Parallel()
	Convey("New validates options", t, func() {
		_, err := New(nil)
		So(err, ShouldErrLike, "hostname is not provided")
		_, err = New(&Options{Hostname: "host1", KeyFile: "/does/not/exist"})
		So(err, ShouldErrLike, "ssh config")
		h, err := New(&Options{Hostname: "host1"})
		So(err, ShouldBeNil)
		So(h.addr, ShouldEqual, "host1:22")
	})
}

func TestPingValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if err := ping(ctx, "", 1); err == nil {
		t.Errorf("Expected to fail for empty address")
	}
	if err := ping(ctx, "host1", 0); err == nil {
		t.Errorf("Expected to fail for zero count")
	}
}

func TestStatusLog(t *testing.T) {
	t.Parallel()
	Convey("Status log", t, func() {
		ctx, _ := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)
		var b bytes.Buffer
		h, err := New(&Options{Hostname: "host1", StatusLog: &b})
		So(err, ShouldBeNil)
		for _, r := range []*tlw.StatusRecord{
			{Status: tlw.StatusStart, Subdir: "repair.reboot", Operation: "repair.reboot"},
			{Status: tlw.StatusFail, Subdir: "verify.ssh", Operation: "verify.ssh", Message: "ssh:\ttimeout\nretry"},
			{Status: tlw.StatusEndGood, Subdir: "repair.reboot", Operation: "repair.reboot", Message: "repaired"},
			{Status: tlw.StatusGood, Subdir: "verify.PASS"},
		} {
			h.RecordStatus(ctx, r)
		}
		lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
		So(lines, ShouldHaveLength, 4)
		ts := fmt.Sprintf("timestamp=%d", testclock.TestRecentTimeUTC.Unix())
		So(lines[0], ShouldStartWith, "START\trepair.reboot\trepair.reboot\t"+ts+"\tlocaltime=")
		So(lines[1], ShouldStartWith, "\tFAIL\tverify.ssh\tverify.ssh\t")
		So(lines[1], ShouldEndWith, "\tssh:    timeout retry")
		So(lines[2], ShouldStartWith, "END GOOD\trepair.reboot\t")
		So(lines[2], ShouldEndWith, "\trepaired")
		So(lines[3], ShouldStartWith, "GOOD\tverify.PASS\t----\t")
	})
}
