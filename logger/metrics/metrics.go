// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package metrics defines the sink used by the repair engine to count
// repair results.
package metrics

import (
	"context"
	"encoding/json"

	"infra/cros/hostrepair/internal/log"
)

// ActionRecord describes the outcome of one repair action in one repair run.
type ActionRecord struct {
	// ActionTag is the tag of the repair action.
	ActionTag string
	// Status is the last status of the action. Eg: repaired, untriggered.
	Status string
	// Success tells whether the host passed verification at the end of the run.
	Success bool
	// Board is the board label of the host.
	Board string
}

// RepairRecord describes the outcome of one repair run.
type RepairRecord struct {
	// Success tells whether the host passed verification at the end of the run.
	Success bool
	// Board is the board label of the host.
	Board string
}

// Metrics is a counter sink for repair runs.
//
// RecordAction is called once per repair action per repair run and
// RecordRepair once per repair run.
type Metrics interface {
	// RecordAction counts the outcome of a single repair action.
	RecordAction(ctx context.Context, r *ActionRecord)
	// RecordRepair counts the outcome of a repair run.
	RecordRepair(ctx context.Context, r *RepairRecord)
}

// NewNoop creates a sink which drops every record.
func NewNoop() Metrics {
	return noop{}
}

type noop struct{}

func (noop) RecordAction(context.Context, *ActionRecord) {}
func (noop) RecordRepair(context.Context, *RepairRecord) {}

// NewLogMetrics creates a sink which writes serialized records to the debug log.
func NewLogMetrics() Metrics {
	return logMetrics{}
}

type logMetrics struct{}

// RecordAction writes the action record to the debug log.
func (logMetrics) RecordAction(ctx context.Context, r *ActionRecord) {
	logRecord(ctx, "action "+r.ActionTag, r)
}

// RecordRepair writes the repair record to the debug log.
func (logMetrics) RecordRepair(ctx context.Context, r *RepairRecord) {
	logRecord(ctx, "repair", r)
}

func logRecord(ctx context.Context, name string, r interface{}) {
	b, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		log.Errorf(ctx, "Record %s: fail to serialize. Error: %s", name, err)
		return
	}
	log.Debugf(ctx, "Record %s: %s", name, b)
}
