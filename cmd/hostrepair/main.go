// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"infra/cros/hostrepair/cmd/hostrepair/internal/cmds"
)

// getApplication returns the hostrepair application.
func getApplication() *cli.Application {
	return &cli.Application{
		Name: "hostrepair",
		Title: `Host verify and repair tool

Verify a host with a DAG of checks and run repair actions for failed checks.`,
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			cmds.VerifyCmd,
			cmds.RepairCmd,
			cmds.DescribeCmd,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
