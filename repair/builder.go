// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repair

import (
	"context"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/logger/metrics"
	"infra/cros/hostrepair/tlw"
)

// VerifierSpec declares a verifier.
type VerifierSpec struct {
	// Tag is a short unique name of the verifier.
	// Eg: ping, ssh, python.
	Tag string
	// Description states the verified condition. It must not end with a period.
	// Eg: The host responds to ping
	Description string
	// Dependencies are tags of verifiers declared earlier.
	Dependencies []string
	// Verify is the check.
	Verify VerifyFunc
}

// ActionSpec declares a repair action.
type ActionSpec struct {
	// Tag is a short unique name of the action.
	Tag string
	// Description states what the action does. It must not end with a period.
	Description string
	// Dependencies are tags of verifiers which have to pass before the repair.
	Dependencies []string
	// Triggers are tags of verifiers whose failure starts the repair.
	Triggers []string
	// Repair is the corrective action.
	Repair RepairFunc
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithMetrics sets the metrics sink of the strategy.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Strategy) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New builds a strategy.
//
// Verifiers must be declared dependency-first, a verifier can depend only on
// verifiers declared before it. Actions can refer to any verifier and to
// RootTag. Actions are run by Repair in the given order.
func New(verifiers []*VerifierSpec, actions []*ActionSpec, opts ...Option) (*Strategy, error) {
	s := &Strategy{
		metrics: metrics.NewNoop(),
	}
	for _, o := range opts {
		o(s)
	}
	index := make(map[string]int, len(verifiers)+1)
	used := stringset.New(len(verifiers))
	for _, spec := range verifiers {
		if spec == nil {
			return nil, errors.Reason("new strategy: verifier spec is not provided").Err()
		}
		if err := verifyIdentity(spec.Tag, spec.Description, index); err != nil {
			return nil, errors.Annotate(err, "new strategy: verifier").Err()
		}
		if spec.Verify == nil {
			return nil, errors.Reason("new strategy: verifier %q: verify function is not provided", spec.Tag).Err()
		}
		deps, err := resolve(spec.Dependencies, index)
		if err != nil {
			return nil, errors.Annotate(err, "new strategy: verifier %q: dependencies", spec.Tag).Err()
		}
		used.AddAll(spec.Dependencies)
		index[spec.Tag] = len(s.graph.verifiers)
		s.graph.verifiers = append(s.graph.verifiers, &verifier{
			node: node{
				tag:         spec.Tag,
				description: spec.Description,
				deps:        deps,
			},
			check: spec.Verify,
		})
	}
	var rootDeps []int
	for i, v := range s.graph.verifiers {
		if !used.Has(v.tag) {
			rootDeps = append(rootDeps, i)
		}
	}
	s.root = len(s.graph.verifiers)
	index[RootTag] = s.root
	s.graph.verifiers = append(s.graph.verifiers, &verifier{
		node: node{
			tag:         RootTag,
			description: rootDescription,
			deps:        rootDeps,
		},
		check: func(context.Context, tlw.Host) error { return nil },
	})
	actionTags := stringset.New(len(actions))
	for _, spec := range actions {
		if spec == nil {
			return nil, errors.Reason("new strategy: action spec is not provided").Err()
		}
		if err := verifyIdentity(spec.Tag, spec.Description, index); err != nil {
			return nil, errors.Annotate(err, "new strategy: action").Err()
		}
		if !actionTags.Add(spec.Tag) {
			return nil, errors.Reason("new strategy: action %q: tag is not unique", spec.Tag).Err()
		}
		if spec.Repair == nil {
			return nil, errors.Reason("new strategy: action %q: repair function is not provided", spec.Tag).Err()
		}
		deps, err := resolve(spec.Dependencies, index)
		if err != nil {
			return nil, errors.Annotate(err, "new strategy: action %q: dependencies", spec.Tag).Err()
		}
		triggers, err := resolve(spec.Triggers, index)
		if err != nil {
			return nil, errors.Annotate(err, "new strategy: action %q: triggers", spec.Tag).Err()
		}
		s.actions = append(s.actions, &action{
			node: node{
				tag:         spec.Tag,
				description: spec.Description,
				deps:        deps,
			},
			triggers: triggers,
			fix:      spec.Repair,
			status:   Unknown,
		})
	}
	return s, nil
}

// verifyIdentity checks the tag and the description of a new node.
func verifyIdentity(tag, description string, index map[string]int) error {
	switch {
	case tag == "":
		return errors.Reason("tag is empty").Err()
	case tag == RootTag:
		return errors.Reason("tag %q is reserved", tag).Err()
	case description == "":
		return errors.Reason("%q: description is empty", tag).Err()
	case strings.HasSuffix(description, "."):
		return errors.Reason("%q: description %q ends with a period", tag, description).Err()
	}
	if _, ok := index[tag]; ok {
		return errors.Reason("%q: tag is not unique", tag).Err()
	}
	return nil
}

// resolve maps tags to verifier indexes. Only tags already in the index
// are known, which rejects forward references and references to actions.
func resolve(tags []string, index map[string]int) ([]int, error) {
	seen := stringset.New(len(tags))
	var r []int
	for _, t := range tags {
		i, ok := index[t]
		if !ok {
			return nil, errors.Reason("unknown verifier %q", t).Err()
		}
		if !seen.Add(t) {
			return nil, errors.Reason("verifier %q listed twice", t).Err()
		}
		r = append(r, i)
	}
	return r, nil
}
