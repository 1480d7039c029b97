// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config describes repair strategies as data: verifiers and repair
// actions bound to exec functions by name.
package config

import (
	"context"
	"io"
	"io/ioutil"
	"time"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v2"

	"infra/cros/hostrepair/internal/log"
)

// Configuration is a repair strategy for one kind of host.
type Configuration struct {
	// Verifiers in declaration order.
	Verifiers []*Verifier `yaml:"verifiers"`
	// Actions in the order they are attempted.
	Actions []*Action `yaml:"actions,omitempty"`
}

// Verifier describes a single check.
type Verifier struct {
	// Tag is unique within the configuration.
	Tag         string `yaml:"tag"`
	Description string `yaml:"description"`
	// Exec is the name of the exec function. Empty means the tag.
	Exec string `yaml:"exec,omitempty"`
	// Args are extra arguments of the exec in "key:value" form.
	Args []string `yaml:"args,omitempty"`
	// Dependencies are tags of verifiers which have to pass first.
	Dependencies []string `yaml:"dependencies,omitempty"`
	// Timeout of commands run by the exec.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Action describes a single repair action.
type Action struct {
	// Tag is unique within the configuration, verifiers included.
	Tag         string `yaml:"tag"`
	Description string `yaml:"description"`
	// Exec is the name of the exec function. Empty means the tag.
	Exec string `yaml:"exec,omitempty"`
	// Args are extra arguments of the exec in "key:value" form.
	Args []string `yaml:"args,omitempty"`
	// Dependencies are tags of verifiers which have to pass before the action.
	Dependencies []string `yaml:"dependencies,omitempty"`
	// Triggers are tags of verifiers whose failure calls for the action.
	Triggers []string `yaml:"triggers,omitempty"`
	// Timeout of commands run by the exec.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ExecsExist function to check if exec is exist.
type ExecsExist func(execName string) bool

// Load performs loading the configuration source with data validation.
//
// The source is YAML. JSON is accepted too as YAML is its superset.
func Load(ctx context.Context, r io.Reader, execsExist ExecsExist) (*Configuration, error) {
	log.Debugf(ctx, "Load configuration: started.")
	if r == nil {
		return nil, errors.Reason("load configuration: reader is not provided").Err()
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Annotate(err, "load configuration").Err()
	}
	if len(data) == 0 {
		return nil, errors.Reason("load configuration: is empty").Err()
	}
	c := &Configuration{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Annotate(err, "load configuration").Err()
	}
	if execsExist == nil {
		log.Infof(ctx, "Load configuration: validation skipped!")
	} else if err := Validate(ctx, c, execsExist); err != nil {
		return nil, errors.Annotate(err, "load configuration").Err()
	}
	log.Debugf(ctx, "Load configuration: finished successfully.")
	return c, nil
}

// Validate validates configuration before usage.
//
// Missing exec names are set to the tag of the node.
// Structure of the graph beyond cycles is validated by the repair package.
func Validate(ctx context.Context, c *Configuration, execsExist ExecsExist) error {
	if c == nil {
		return errors.Reason("validate: configuration is not provided").Err()
	}
	for _, v := range c.Verifiers {
		if v == nil {
			return errors.Reason("validate: verifier is empty").Err()
		}
		if v.Exec == "" {
			v.Exec = v.Tag
		}
		if !execsExist(v.Exec) {
			return errors.Reason("validate: verifier %q: exec %q does not exist", v.Tag, v.Exec).Err()
		}
	}
	for _, a := range c.Actions {
		if a == nil {
			return errors.Reason("validate: action is empty").Err()
		}
		if a.Exec == "" {
			a.Exec = a.Tag
		}
		if !execsExist(a.Exec) {
			return errors.Reason("validate: action %q: exec %q does not exist", a.Tag, a.Exec).Err()
		}
	}
	if err := verifyAcyclic(c); err != nil {
		return errors.Annotate(err, "validate").Err()
	}
	log.Debugf(ctx, "Validate: %d verifiers and %d actions are valid.", len(c.Verifiers), len(c.Actions))
	return nil
}

// verifyAcyclic checks that dependencies of verifiers do not form a loop.
func verifyAcyclic(c *Configuration) error {
	deps := make(map[string][]string, len(c.Verifiers))
	for _, v := range c.Verifiers {
		deps[v.Tag] = v.Dependencies
	}
	done := stringset.New(len(c.Verifiers))
	inPath := stringset.New(len(c.Verifiers))
	var visit func(tag string) error
	visit = func(tag string) error {
		if done.Has(tag) {
			return nil
		}
		if inPath.Has(tag) {
			return errors.Reason("found loop at %q", tag).Err()
		}
		inPath.Add(tag)
		for _, d := range deps[tag] {
			if err := visit(d); err != nil {
				return errors.Annotate(err, "check %q from %q", d, tag).Err()
			}
		}
		inPath.Del(tag)
		done.Add(tag)
		return nil
	}
	for _, v := range c.Verifiers {
		if err := visit(v.Tag); err != nil {
			return err
		}
	}
	return nil
}
