// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cmds

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/logging"
	. "go.chromium.org/luci/common/testing/assertions"

	"infra/cros/hostrepair/logger/metrics"
)

func parseHostFlags(args ...string) (*hostFlags, error) {
	f := &hostFlags{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	f.register(fs)
	return f, fs.Parse(args)
}

func TestHostFlags(t *testing.T) {
	t.Parallel()
	Convey("Host flags", t, func() {
		Convey("defaults", func() {
			f, err := parseHostFlags("-host", "host1")
			So(err, ShouldBeNil)
			So(f.validate(), ShouldBeNil)
			So(f.port, ShouldEqual, 22)
			So(f.user, ShouldEqual, "root")
			So(f.metrics, ShouldEqual, metricsNone)
			So(f.logLevel, ShouldEqual, logging.Info)
		})
		Convey("host is required", func() {
			f, err := parseHostFlags()
			So(err, ShouldBeNil)
			So(f.validate(), ShouldErrLike, "host is not provided")
		})
		Convey("unknown metrics backend", func() {
			f, err := parseHostFlags("-host", "host1", "-metrics", "statsd")
			So(err, ShouldBeNil)
			So(f.validate(), ShouldErrLike, `metrics backend "statsd" is not supported`)
		})
		Convey("log level", func() {
			f, err := parseHostFlags("-host", "host1", "-log-level", "debug")
			So(err, ShouldBeNil)
			So(f.logLevel, ShouldEqual, logging.Debug)
		})
		Convey("metrics sinks", func() {
			ctx := context.Background()
			f, err := parseHostFlags("-host", "host1", "-metrics", "log")
			So(err, ShouldBeNil)
			m, closer := f.newMetrics(ctx)
			defer closer()
			So(m, ShouldResemble, metrics.NewLogMetrics())
			f.metrics = metricsNone
			m, closer = f.newMetrics(ctx)
			defer closer()
			So(m, ShouldResemble, metrics.NewNoop())
		})
	})
}

func TestNewHost(t *testing.T) {
	t.Parallel()
	Convey("New host with status log", t, func() {
		dir := t.TempDir()
		p := filepath.Join(dir, "status.log")
		f, err := parseHostFlags("-host", "host1", "-board", "eve", "-status-log", p)
		So(err, ShouldBeNil)
		h, closer, err := f.newHost()
		So(err, ShouldBeNil)
		defer closer()
		So(h.Hostname(), ShouldEqual, "host1")
		So(h.Board(), ShouldEqual, "eve")
		_, err = os.Stat(p)
		So(err, ShouldBeNil)
	})
	Convey("Status log in a missing directory", t, func() {
		f, err := parseHostFlags("-host", "host1", "-status-log", "/does/not/exist/status.log")
		So(err, ShouldBeNil)
		_, _, err = f.newHost()
		So(err, ShouldErrLike, "open status log")
	})
}

func TestOpenConfig(t *testing.T) {
	t.Parallel()
	Convey("Open config", t, func() {
		f := &commonFlags{}
		r, err := f.openConfig()
		So(err, ShouldBeNil)
		So(r, ShouldBeNil)
		f.configPath = "/does/not/exist.yaml"
		_, err = f.openConfig()
		So(err, ShouldErrLike, "open config")
	})
}

func TestLock(t *testing.T) {
	t.Parallel()
	Convey("Host lock", t, func() {
		ctx := context.Background()
		Convey("disabled", func() {
			f, err := parseHostFlags("-host", "host1", "-lock-dir", "")
			So(err, ShouldBeNil)
			unlock, err := f.lock(ctx)
			So(err, ShouldBeNil)
			So(unlock(), ShouldBeNil)
		})
		Convey("enabled", func() {
			dir := t.TempDir()
			f, err := parseHostFlags("-host", "host1", "-lock-dir", dir)
			So(err, ShouldBeNil)
			unlock, err := f.lock(ctx)
			So(err, ShouldBeNil)
			_, err = os.Stat(filepath.Join(dir, "host1.lock"))
			So(err, ShouldBeNil)
			So(unlock(), ShouldBeNil)
		})
	})
}

func TestExpandPath(t *testing.T) {
	t.Parallel()
	Convey("Expand path", t, func() {
		p, err := expandPath("")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, "")
		p, err = expandPath("/etc/key")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, "/etc/key")
		p, err = expandPath("~/key")
		So(err, ShouldBeNil)
		So(p, ShouldNotStartWith, "~")
		So(p, ShouldEndWith, "/key")
	})
}
