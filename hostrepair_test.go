// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package hostrepair

import (
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
	. "go.chromium.org/luci/common/testing/assertions"

	"infra/cros/hostrepair/internal/faketlw"
	"infra/cros/hostrepair/logger/metrics"
)

// fakeMetrics keeps every record in memory.
type fakeMetrics struct {
	actions []*metrics.ActionRecord
	repairs []*metrics.RepairRecord
}

func (m *fakeMetrics) RecordAction(ctx context.Context, r *metrics.ActionRecord) {
	m.actions = append(m.actions, r)
}

func (m *fakeMetrics) RecordRepair(ctx context.Context, r *metrics.RepairRecord) {
	m.repairs = append(m.repairs, r)
}

func healthyHost() *faketlw.Host {
	host := faketlw.New("host1")
	host.BoardName = "eve"
	host.SetCommand("true", 0, "")
	host.SetCommand("python3 --version", 0, "Python 3.8.10")
	host.SetCommand("df -P -B1 /", 0, "Filesystem 1-blocks Used Available Capacity Mounted on\n/dev/sda1 100 50 5000000000 50% /")
	host.SetCommand("touch /tmp/.hostrepair_write_check", 0, "")
	host.SetCommand("rm -f /tmp/.hostrepair_write_check", 0, "")
	return host
}

func hasMessage(ml *memlogger.MemLogger, sub string) bool {
	for _, m := range ml.Messages() {
		if strings.Contains(m.Msg, sub) {
			return true
		}
	}
	return false
}

const failingConfig = `
verifiers:
  - tag: broken
    description: Always fails
    exec: sample_fail
actions:
  - tag: fix
    description: Does nothing
    exec: sample_pass
    triggers: [broken]
`

func TestRunArgs(t *testing.T) {
	t.Parallel()
	Convey("Run arguments are verified", t, func() {
		ctx := context.Background()
		So(Run(ctx, nil), ShouldErrLike, "is empty")
		So(Run(ctx, &RunArgs{TaskName: TaskNameVerify}), ShouldErrLike, "host is not provided")
		So(Run(ctx, &RunArgs{Host: faketlw.New("h"), TaskName: "deploy"}), ShouldErrLike, `task "deploy" is not supported`)
	})
}

func TestRun(t *testing.T) {
	t.Parallel()
	Convey("Run", t, func() {
		ctx := memlogger.Use(context.Background())
		ctx = logging.SetLevel(ctx, logging.Info)
		ml := logging.Get(ctx).(*memlogger.MemLogger)

		Convey("verify healthy host with default strategy", func() {
			host := healthyHost()
			So(Run(ctx, &RunArgs{Host: host, TaskName: TaskNameVerify}), ShouldBeNil)
			So(host.StatusLines(), ShouldContain, "GOOD verify.PASS")
			So(hasMessage(ml, `Run verify for "host1": started`), ShouldBeTrue)
			So(hasMessage(ml, "Load strategy: use default configuration"), ShouldBeFalse)
		})
		Convey("repair healthy host records metrics", func() {
			host := healthyHost()
			m := &fakeMetrics{}
			So(Run(ctx, &RunArgs{Host: host, TaskName: TaskNameRepair, Metrics: m}), ShouldBeNil)
			So(m.repairs, ShouldResemble, []*metrics.RepairRecord{{Success: true, Board: "eve"}})
			So(m.actions, ShouldHaveLength, 2)
			So(m.actions[0].Status, ShouldEqual, "untriggered")
		})
		Convey("repair with custom strategy which cannot fix", func() {
			host := faketlw.New("host1")
			m := &fakeMetrics{}
			err := Run(ctx, &RunArgs{
				Host:         host,
				TaskName:     TaskNameRepair,
				ConfigReader: strings.NewReader(failingConfig),
				Metrics:      m,
				Silent:       true,
			})
			So(err, ShouldErrLike, `run repair for "host1"`)
			So(host.Records, ShouldBeEmpty)
			So(m.actions[0].Status, ShouldEqual, "failed-trigger")
			So(hasMessage(ml, "fix: failed-trigger"), ShouldBeTrue)
		})
		Convey("bad custom strategy", func() {
			err := Run(ctx, &RunArgs{
				Host:         faketlw.New("host1"),
				TaskName:     TaskNameVerify,
				ConfigReader: strings.NewReader("verifiers: 1"),
			})
			So(err, ShouldErrLike, "load configuration")
		})
	})
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	Convey("Describe the default strategy", t, func() {
		d, err := Describe(context.Background(), nil)
		So(err, ShouldBeNil)
		So(d, ShouldStartWith, "Strategy: 5 verifiers, 2 repair actions")
		So(d, ShouldContainSubstring, `"tmp_writable" Temporary directory is writable`)
		So(d, ShouldContainSubstring, "Triggers: root_space, tmp_writable")
	})
}
