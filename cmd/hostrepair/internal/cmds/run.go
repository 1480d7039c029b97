// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package cmds

import (
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"infra/cros/hostrepair"
)

// VerifyCmd verifies the host.
var VerifyCmd = &subcommands.Command{
	UsageLine: "verify -host <host> [flags]",
	ShortDesc: "Verify the host",
	LongDesc:  "Run every verifier of the strategy against the host and report failed ones.",
	CommandRun: func() subcommands.CommandRun {
		c := &runCmd{task: hostrepair.TaskNameVerify}
		c.flags.register(&c.Flags)
		return c
	},
}

// RepairCmd repairs the host.
var RepairCmd = &subcommands.Command{
	UsageLine: "repair -host <host> [flags]",
	ShortDesc: "Repair the host",
	LongDesc:  "Run repair actions of the strategy for failed verifiers and verify the host again.",
	CommandRun: func() subcommands.CommandRun {
		c := &runCmd{task: hostrepair.TaskNameRepair}
		c.flags.register(&c.Flags)
		return c
	},
}

// runCmd runs a task against the host.
type runCmd struct {
	subcommands.CommandRunBase
	flags hostFlags
	task  hostrepair.TaskName
}

// Run is the main entrypoint for verify and repair commands.
func (c *runCmd) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

func (c *runCmd) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	if len(args) > 0 {
		return errors.Reason("%s: unexpected positional arguments %q", c.task, args).Err()
	}
	if err := c.flags.validate(); err != nil {
		return errors.Annotate(err, "%s", c.task).Err()
	}
	ctx := cli.GetContext(a, c, env)
	ctx = logging.SetLevel(ctx, c.flags.logLevel)
	unlock, err := c.flags.lock(ctx)
	if err != nil {
		return errors.Annotate(err, "%s", c.task).Err()
	}
	defer unlock()
	host, closeHost, err := c.flags.newHost()
	if err != nil {
		return errors.Annotate(err, "%s", c.task).Err()
	}
	defer closeHost()
	m, closeMetrics := c.flags.newMetrics(ctx)
	defer closeMetrics()
	cr, err := c.flags.openConfig()
	if err != nil {
		return errors.Annotate(err, "%s", c.task).Err()
	}
	if cr != nil {
		defer cr.Close()
	}
	return hostrepair.Run(ctx, &hostrepair.RunArgs{
		Host:         host,
		ConfigReader: cr,
		TaskName:     c.task,
		Metrics:      m,
		Silent:       c.flags.silent,
	})
}
