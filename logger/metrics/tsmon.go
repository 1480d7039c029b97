// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package metrics

import (
	"context"

	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
)

var (
	actionCounter = metric.NewCounter(
		"chromeos/hostrepair/repair/action",
		"Number of repair actions by final status.",
		nil,
		field.String("action_tag"),
		field.String("status"),
		field.Bool("success"), // host passed verification at the end of the run
		field.String("board"))

	repairCounter = metric.NewCounter(
		"chromeos/hostrepair/repair/result",
		"Number of repair runs by result.",
		nil,
		field.Bool("success"),
		field.String("board"))
)

// NewTsmonMetrics creates a sink which increments tsmon counters.
//
// The counters are flushed by whatever tsmon state the context carries.
func NewTsmonMetrics() Metrics {
	return tsmonMetrics{}
}

type tsmonMetrics struct{}

// RecordAction increments the action counter.
func (tsmonMetrics) RecordAction(ctx context.Context, r *ActionRecord) {
	actionCounter.Add(ctx, 1, r.ActionTag, r.Status, r.Success, r.Board)
}

// RecordRepair increments the repair result counter.
func (tsmonMetrics) RecordRepair(ctx context.Context, r *RepairRecord) {
	repairCounter.Add(ctx, 1, r.Success, r.Board)
}
