// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package monitoring

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/tsmon"
	"go.chromium.org/luci/common/tsmon/target"
)

func TestTsmonFlags(t *testing.T) {
	t.Parallel()
	Convey("Flags for a task", t, func() {
		fl := tsmonFlags(Config{Endpoint: "file:///tmp/metrics.txt", Credentials: "/creds.json"})
		So(fl.Flush, ShouldEqual, tsmon.FlushManual)
		So(fl.Endpoint, ShouldEqual, "file:///tmp/metrics.txt")
		So(fl.Credentials, ShouldEqual, "/creds.json")
		So(fl.Target.TargetType, ShouldResemble, target.TaskType)
		So(fl.Target.TaskServiceName, ShouldEqual, programName)
	})
	Convey("Defaults are kept", t, func() {
		fl := tsmonFlags(Config{})
		So(fl.Endpoint, ShouldEqual, tsmon.NewFlags().Endpoint)
	})
}
