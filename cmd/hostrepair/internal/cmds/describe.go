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

// DescribeCmd prints the structure of the strategy.
var DescribeCmd = &subcommands.Command{
	UsageLine: "describe [-config <path>]",
	ShortDesc: "Print the strategy",
	LongDesc:  "Load the strategy, validate it and print verifiers and repair actions.",
	CommandRun: func() subcommands.CommandRun {
		c := &describeCmd{}
		c.flags.register(&c.Flags)
		return c
	},
}

type describeCmd struct {
	subcommands.CommandRunBase
	flags commonFlags
}

// Run is the main entrypoint for the describe command.
func (c *describeCmd) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if err := c.innerRun(a, args, env); err != nil {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
		return 1
	}
	return 0
}

func (c *describeCmd) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	ctx := cli.GetContext(a, c, env)
	ctx = logging.SetLevel(ctx, c.flags.logLevel)
	cr, err := c.flags.openConfig()
	if err != nil {
		return errors.Annotate(err, "describe").Err()
	}
	if cr != nil {
		defer cr.Close()
	}
	d, err := hostrepair.Describe(ctx, cr)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.GetOut(), d)
	return nil
}
