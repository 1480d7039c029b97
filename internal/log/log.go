// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package log adds an internal logging API on top of the logger carried by
// the context.
package log

import (
	"context"

	"go.chromium.org/luci/common/logging"
)

// Debugf logs details useful only when debugging a strategy.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, logging.Debug, format, args)
}

// Infof logs progress of verifiers and repair actions.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, logging.Info, format, args)
}

// Warningf logs problems that do not stop the run.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, logging.Warning, format, args)
}

// Errorf logs failures.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logf(ctx, logging.Error, format, args)
}

func logf(ctx context.Context, level logging.Level, format string, args []interface{}) {
	if logging.IsLogging(ctx, level) {
		logging.Get(ctx).LogCall(level, 2, format, args)
	}
}
