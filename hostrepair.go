// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package hostrepair provides ability to verify and repair a single host
// with a verify/repair strategy.
package hostrepair

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"infra/cros/hostrepair/config"
	"infra/cros/hostrepair/internal/loader"
	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/logger/metrics"
	"infra/cros/hostrepair/repair"
	"infra/cros/hostrepair/tlw"
)

// TaskName describes which flow is run against the host.
type TaskName string

const (
	// TaskNameVerify only verifies the host.
	TaskNameVerify TaskName = "verify"
	// TaskNameRepair verifies the host and attempts repair actions.
	TaskNameRepair TaskName = "repair"
)

// RunArgs holds input arguments for Run.
type RunArgs struct {
	// Host targeted by the run.
	Host tlw.Host
	// Provide access to read custom strategy. The default strategy is used when empty.
	ConfigReader io.Reader
	// TaskName used to drive the process.
	TaskName TaskName
	// Metrics receives results of repair runs. Optional.
	Metrics metrics.Metrics
	// Silent disables writing of the host status log.
	Silent bool
}

// verify verifies input arguments.
func (a *RunArgs) verify() error {
	if a == nil {
		return errors.Reason("is empty").Err()
	} else if a.Host == nil {
		return errors.Reason("host is not provided").Err()
	}
	switch a.TaskName {
	case TaskNameVerify, TaskNameRepair:
	default:
		return errors.Reason("task %q is not supported", a.TaskName).Err()
	}
	return nil
}

// Run runs the task against the host.
// Process includes:
//   - Verification of input data.
//   - Load the strategy with verification.
//   - Run verification or repair.
//   - Log the summary of repair actions.
func Run(ctx context.Context, args *RunArgs) error {
	if err := args.verify(); err != nil {
		return errors.Annotate(err, "run: verify input").Err()
	}
	runID := uuid.New().String()
	ctx = logging.SetField(ctx, "run_id", runID)
	log.Infof(ctx, "Run %s for %q: started (run %s).", args.TaskName, args.Host.Hostname(), runID)
	s, err := loadStrategy(ctx, args.ConfigReader, args.Metrics)
	if err != nil {
		return errors.Annotate(err, "run %s for %q", args.TaskName, args.Host.Hostname()).Err()
	}
	switch args.TaskName {
	case TaskNameRepair:
		err = s.Repair(ctx, args.Host, args.Silent)
		logSummary(ctx, s)
	default:
		err = s.Verify(ctx, args.Host, args.Silent)
	}
	if err != nil {
		log.Infof(ctx, "Run %s for %q: fail.", args.TaskName, args.Host.Hostname())
		return errors.Annotate(err, "run %s for %q", args.TaskName, args.Host.Hostname()).Err()
	}
	log.Infof(ctx, "Run %s for %q: finished successfully.", args.TaskName, args.Host.Hostname())
	return nil
}

// Describe loads the strategy and renders it as text.
func Describe(ctx context.Context, r io.Reader) (string, error) {
	s, err := loadStrategy(ctx, r, nil)
	if err != nil {
		return "", errors.Annotate(err, "describe").Err()
	}
	return s.Describe(), nil
}

// loadStrategy loads and verifies a strategy.
// If configuration is not provided then default is used.
func loadStrategy(ctx context.Context, r io.Reader, m metrics.Metrics) (*repair.Strategy, error) {
	opts := []repair.Option{repair.WithMetrics(m)}
	if r == nil {
		log.Debugf(ctx, "Load strategy: use default configuration.")
		return loader.Strategy(ctx, config.Default(), opts...)
	}
	return loader.LoadStrategy(ctx, r, opts...)
}

// logSummary logs the status of every repair action.
func logSummary(ctx context.Context, s *repair.Strategy) {
	log.Infof(ctx, "Repair actions summary:")
	for _, tag := range s.ActionTags() {
		status, _ := s.ActionStatus(tag)
		log.Infof(ctx, "  %s: %s", tag, status)
	}
}
