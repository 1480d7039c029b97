// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package repair provides the verify/repair engine.
//
// A Strategy holds a DAG of verifiers (health checks with cached results)
// and an ordered list of repair actions. Each repair action runs when one of
// its trigger verifiers fails and its own dependencies pass. The engine is
// synchronous and does not run nodes concurrently.
package repair

import (
	"context"
	"fmt"
	"strings"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/logger/metrics"
	"infra/cros/hostrepair/tlw"
)

// RootTag is the reserved tag of the synthetic verifier which depends on
// every verifier nothing else depends on.
const RootTag = "PASS"

const rootDescription = "All host verification checks pass"

// Strategy is a built verify/repair DAG.
//
// A Strategy is not safe for concurrent use.
type Strategy struct {
	graph   graph
	root    int
	actions []*action
	metrics metrics.Metrics
}

// Verify checks the host from scratch.
//
// Every verifier is evaluated at most once per call. The returned error is
// a DependencyError listing the failed verifiers.
func (s *Strategy) Verify(ctx context.Context, host tlw.Host, silent bool) error {
	log.Infof(ctx, "Verify %q: started.", host.Hostname())
	s.graph.invalidate(s.root)
	if err := s.graph.verify(ctx, host, s.root, silent); err != nil {
		log.Infof(ctx, "Verify %q: fail.", host.Hostname())
		return err
	}
	log.Infof(ctx, "Verify %q: finished successfully.", host.Hostname())
	return nil
}

// Repair attempts every repair action in declared order and then verifies
// the host.
//
// Errors of single actions are logged and do not stop the following
// actions. The returned error is the result of the final verification.
func (s *Strategy) Repair(ctx context.Context, host tlw.Host, silent bool) error {
	log.Infof(ctx, "Repair %q: started.", host.Hostname())
	s.graph.invalidate(s.root)
	for _, a := range s.actions {
		if err := a.repairAgainst(ctx, &s.graph, host, silent); err != nil {
			log.Infof(ctx, "Repair action %q: %s", a.tag, a.status)
			log.Debugf(ctx, "Repair action %q: %s", a.tag, err)
		}
	}
	err := s.graph.verify(ctx, host, s.root, silent)
	s.recordMetrics(ctx, host, err == nil)
	if err != nil {
		log.Infof(ctx, "Repair %q: host is still failing.", host.Hostname())
		return err
	}
	log.Infof(ctx, "Repair %q: finished successfully.", host.Hostname())
	return nil
}

func (s *Strategy) recordMetrics(ctx context.Context, host tlw.Host, success bool) {
	board := host.Board()
	for _, a := range s.actions {
		s.metrics.RecordAction(ctx, &metrics.ActionRecord{
			ActionTag: a.tag,
			Status:    string(a.status),
			Success:   success,
			Board:     board,
		})
	}
	s.metrics.RecordRepair(ctx, &metrics.RepairRecord{
		Success: success,
		Board:   board,
	})
}

// ActionStatus provides the status of the last attempt of the action.
func (s *Strategy) ActionStatus(tag string) (ActionStatus, bool) {
	for _, a := range s.actions {
		if a.tag == tag {
			return a.status, true
		}
	}
	return "", false
}

// ActionTags provides tags of repair actions in execution order.
func (s *Strategy) ActionTags() []string {
	tags := make([]string, len(s.actions))
	for i, a := range s.actions {
		tags[i] = a.tag
	}
	return tags
}

// Describe describes the strategy structure.
func (s *Strategy) Describe() string {
	prefix := "\n "
	d := fmt.Sprintf("Strategy: %d verifiers, %d repair actions", len(s.graph.verifiers)-1, len(s.actions))
	d += fmt.Sprintf("%sVerifiers:%s %s", prefix, prefix, s.describeVerifier(s.root, prefix+"  "))
	if len(s.actions) > 0 {
		d += fmt.Sprintf("%sRepair actions:", prefix)
		for i, a := range s.actions {
			d += fmt.Sprintf("%s %d: %q %s", prefix, i, a.tag, a.description)
			d += s.describeList("Dependencies", a.deps, prefix+"   ")
			d += s.describeList("Triggers", a.triggers, prefix+"   ")
		}
	} else {
		d += prefix + "No repair actions"
	}
	return d
}

// describeVerifier describes the verifier with its dependencies recursively.
func (s *Strategy) describeVerifier(i int, prefix string) string {
	v := s.graph.verifiers[i]
	d := fmt.Sprintf("%q %s", v.tag, v.description)
	for j, dep := range v.deps {
		d += fmt.Sprintf("%s%d: %s", prefix, j, s.describeVerifier(dep, prefix+"  "))
	}
	return d
}

func (s *Strategy) describeList(name string, list []int, prefix string) string {
	if len(list) == 0 {
		return ""
	}
	tags := make([]string, len(list))
	for i, v := range list {
		tags[i] = s.graph.verifiers[v].tag
	}
	return fmt.Sprintf("%s%s: %s", prefix, name, strings.Join(tags, ", "))
}
