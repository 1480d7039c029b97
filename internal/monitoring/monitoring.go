// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package monitoring sets up tsmon for a single hostrepair run.
//
// Metrics are flushed once when the client is closed.
package monitoring

import (
	"context"
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/tsmon"
	"go.chromium.org/luci/common/tsmon/target"

	"infra/cros/hostrepair/internal/log"
)

var programName = filepath.Base(os.Args[0])

// Config describes configuration for Setup.
type Config struct {
	// Endpoint of the monitoring service. Empty means the tsmon config file.
	Endpoint string
	// Credentials is the path to the service account JSON file.
	Credentials string
}

// Client represents the monitoring state. The client should be closed
// after use.
type Client struct {
	ctx context.Context
}

// Close flushes metrics and shuts tsmon down.
func (c *Client) Close() error {
	log.Debugf(c.ctx, "Flush metrics.")
	tsmon.Shutdown(c.ctx)
	return nil
}

// Setup configures tsmon based on the given Config. Make sure to close
// the client after use. Errors in setting up tsmon are logged and ignored,
// the run goes on without metrics.
func Setup(ctx context.Context, c Config) *Client {
	fl := tsmonFlags(c)
	if err := tsmon.InitializeFromFlags(ctx, &fl); err != nil {
		log.Warningf(ctx, "Skipping tsmon setup: %s", err)
	}
	return &Client{ctx: ctx}
}

func tsmonFlags(c Config) tsmon.Flags {
	fl := tsmon.NewFlags()
	fl.Flush = tsmon.FlushManual
	if c.Endpoint != "" {
		fl.Endpoint = c.Endpoint
	}
	if c.Credentials != "" {
		fl.Credentials = c.Credentials
	}
	fl.Target.SetDefaultsFromHostname()
	fl.Target.TargetType = target.TaskType
	fl.Target.TaskServiceName = programName
	fl.Target.TaskJobName = programName
	return fl
}
