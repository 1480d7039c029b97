// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cmds implements subcommands of hostrepair.
package cmds

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"infra/cros/hostrepair/internal/hostlock"
	"infra/cros/hostrepair/internal/localtlw"
	"infra/cros/hostrepair/internal/monitoring"
	"infra/cros/hostrepair/logger/metrics"
)

// Backends of metrics.
const (
	metricsNone  = "none"
	metricsLog   = "log"
	metricsTsmon = "tsmon"
)

// commonFlags are flags shared by all subcommands.
type commonFlags struct {
	logLevel   logging.Level
	configPath string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	f.logLevel = logging.Info
	fs.Var(&f.logLevel, "log-level", text.Doc(`
		Log level, valid options are "debug", "info", "warning", "error". Default is "info".
	`))
	fs.StringVar(&f.configPath, "config", "", "Path to the strategy file (YAML or JSON). The built-in strategy is used when empty.")
}

// openConfig opens the strategy file. It returns nil when no file is set.
func (f *commonFlags) openConfig() (io.ReadCloser, error) {
	if f.configPath == "" {
		return nil, nil
	}
	p, err := homedir.Expand(f.configPath)
	if err != nil {
		return nil, errors.Annotate(err, "open config").Err()
	}
	r, err := os.Open(p)
	if err != nil {
		return nil, errors.Annotate(err, "open config").Err()
	}
	return r, nil
}

// hostFlags describe how to reach the host and where to report results.
type hostFlags struct {
	commonFlags
	host          string
	port          int
	user          string
	keyFile       string
	board         string
	statusLog     string
	silent        bool
	metrics       string
	tsmonEndpoint string
	tsmonCreds    string
	lockDir       string
	lockTimeout   time.Duration
}

func (f *hostFlags) register(fs *flag.FlagSet) {
	f.commonFlags.register(fs)
	fs.StringVar(&f.host, "host", "", "Hostname or IP address of the host. Required.")
	fs.IntVar(&f.port, "port", 22, "SSH port of the host.")
	fs.StringVar(&f.user, "user", "root", "User to log in to the host.")
	fs.StringVar(&f.keyFile, "key", "", "Path to the SSH private key.")
	fs.StringVar(&f.board, "board", "", "Board of the host, reported with metrics.")
	fs.StringVar(&f.statusLog, "status-log", "", "Path to the status log file. The file is appended.")
	fs.BoolVar(&f.silent, "silent", false, "Do not write the status log.")
	fs.StringVar(&f.metrics, "metrics", metricsNone, text.Doc(`
		Metrics backend, valid options are "none", "log", "tsmon".
	`))
	fs.StringVar(&f.tsmonEndpoint, "ts-mon-endpoint", "", "Endpoint of tsmon. The tsmon config file is used when empty.")
	fs.StringVar(&f.tsmonCreds, "ts-mon-credentials", "", "Path to the tsmon service account JSON file.")
	fs.StringVar(&f.lockDir, "lock-dir", filepath.Join(os.TempDir(), "hostrepair-locks"), "Directory of per host lock files. Empty disables locking.")
	fs.DurationVar(&f.lockTimeout, "lock-timeout", 10*time.Minute, "How long to wait for another run against the same host.")
}

func (f *hostFlags) validate() error {
	if f.host == "" {
		return errors.Reason("host is not provided").Err()
	}
	switch f.metrics {
	case metricsNone, metricsLog, metricsTsmon:
	default:
		return errors.Reason("metrics backend %q is not supported", f.metrics).Err()
	}
	return nil
}

// newHost creates the host. The returned closer releases its resources.
func (f *hostFlags) newHost() (*localtlw.Host, func(), error) {
	keyFile, err := expandPath(f.keyFile)
	if err != nil {
		return nil, nil, errors.Annotate(err, "new host").Err()
	}
	o := &localtlw.Options{
		Hostname: f.host,
		Port:     f.port,
		User:     f.user,
		KeyFile:  keyFile,
		Board:    f.board,
	}
	var sl *os.File
	if f.statusLog != "" {
		p, err := expandPath(f.statusLog)
		if err != nil {
			return nil, nil, errors.Annotate(err, "new host").Err()
		}
		if sl, err = localtlw.OpenStatusLog(p); err != nil {
			return nil, nil, errors.Annotate(err, "new host").Err()
		}
		o.StatusLog = sl
	}
	h, err := localtlw.New(o)
	if err != nil {
		if sl != nil {
			sl.Close()
		}
		return nil, nil, errors.Annotate(err, "new host").Err()
	}
	return h, func() {
		h.Close()
		if sl != nil {
			sl.Close()
		}
	}, nil
}

// lock grabs the lock of the host. The returned function releases it.
func (f *hostFlags) lock(ctx context.Context) (func() error, error) {
	if f.lockDir == "" {
		return func() error { return nil }, nil
	}
	dir, err := expandPath(f.lockDir)
	if err != nil {
		return nil, errors.Annotate(err, "lock").Err()
	}
	return hostlock.Acquire(ctx, dir, f.host, f.lockTimeout)
}

// expandPath expands the leading "~" of the path. Empty path is kept.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	r, err := homedir.Expand(p)
	return r, errors.Annotate(err, "expand path %q", p).Err()
}

// newMetrics creates the metrics sink. The returned closer flushes it.
func (f *hostFlags) newMetrics(ctx context.Context) (metrics.Metrics, func()) {
	switch f.metrics {
	case metricsLog:
		return metrics.NewLogMetrics(), func() {}
	case metricsTsmon:
		c := monitoring.Setup(ctx, monitoring.Config{
			Endpoint:    f.tsmonEndpoint,
			Credentials: f.tsmonCreds,
		})
		return metrics.NewTsmonMetrics(), func() { c.Close() }
	default:
		return metrics.NewNoop(), func() {}
	}
}
