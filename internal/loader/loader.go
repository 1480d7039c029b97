// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package loader builds repair strategies from configurations.
package loader

import (
	"context"
	"io"
	"time"

	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/config"
	"infra/cros/hostrepair/internal/execs"
	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/repair"
	"infra/cros/hostrepair/tlw"
)

// execsExist is link to the function to check if exec function is present.
// Link created to create ability to override for local testing.
var execsExist = execs.Exist

// execsRun is link to the function which runs exec functions.
var execsRun = execs.Run

// LoadStrategy reads the configuration and builds the strategy from it.
func LoadStrategy(ctx context.Context, r io.Reader, opts ...repair.Option) (*repair.Strategy, error) {
	c, err := config.Load(ctx, r, execsExist)
	if err != nil {
		return nil, errors.Annotate(err, "load strategy").Err()
	}
	s, err := Strategy(ctx, c, opts...)
	return s, errors.Annotate(err, "load strategy").Err()
}

// Strategy builds the strategy from the configuration.
//
// Verifiers are reordered so that each one follows its dependencies,
// otherwise the declared order is kept.
func Strategy(ctx context.Context, c *config.Configuration, opts ...repair.Option) (*repair.Strategy, error) {
	if err := config.Validate(ctx, c, execsExist); err != nil {
		return nil, errors.Annotate(err, "build strategy").Err()
	}
	var verifiers []*repair.VerifierSpec
	for _, v := range orderVerifiers(c.Verifiers) {
		verifiers = append(verifiers, &repair.VerifierSpec{
			Tag:          v.Tag,
			Description:  v.Description,
			Dependencies: v.Dependencies,
			Verify:       execFunc(v.Exec, v.Args, v.Timeout),
		})
	}
	var actions []*repair.ActionSpec
	for _, a := range c.Actions {
		actions = append(actions, &repair.ActionSpec{
			Tag:          a.Tag,
			Description:  a.Description,
			Dependencies: a.Dependencies,
			Triggers:     a.Triggers,
			Repair:       execFunc(a.Exec, a.Args, a.Timeout),
		})
	}
	s, err := repair.New(verifiers, actions, opts...)
	if err != nil {
		return nil, errors.Annotate(err, "build strategy").Err()
	}
	log.Debugf(ctx, "Build strategy: %d verifiers and %d actions.", len(verifiers), len(actions))
	return s, nil
}

// execFunc creates the function which runs the exec against the host.
func execFunc(name string, args []string, timeout time.Duration) func(context.Context, tlw.Host) error {
	return func(ctx context.Context, host tlw.Host) error {
		return execsRun(ctx, name, &execs.ExecInfo{
			Host:       host,
			ActionArgs: args,
			Timeout:    timeout,
		})
	}
}

// orderVerifiers sorts verifiers so that dependencies come first.
// The sort is stable and unknown dependencies are left for the strategy
// builder to report.
func orderVerifiers(vs []*config.Verifier) []*config.Verifier {
	byTag := make(map[string]*config.Verifier, len(vs))
	for _, v := range vs {
		if _, ok := byTag[v.Tag]; !ok {
			byTag[v.Tag] = v
		}
	}
	added := make(map[*config.Verifier]bool, len(vs))
	var ordered []*config.Verifier
	var add func(v *config.Verifier)
	add = func(v *config.Verifier) {
		if added[v] {
			return
		}
		added[v] = true
		for _, d := range v.Dependencies {
			if dv, ok := byTag[d]; ok {
				add(dv)
			}
		}
		ordered = append(ordered, v)
	}
	for _, v := range vs {
		add(v)
	}
	return ordered
}
