// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repair

import (
	"context"

	"go.chromium.org/luci/common/data/stringset"

	"infra/cros/hostrepair/tlw"
)

// node holds the identity and the dependencies of a verifier or a repair action.
// Dependencies are indexes in the verifier arena and never change after build.
type node struct {
	tag         string
	description string
	deps        []int
}

// graph is the arena of verifiers of a strategy.
// Nodes refer to each other only by index.
type graph struct {
	verifiers []*verifier
}

// verifyList evaluates every listed verifier and collects all failures of
// their closure into a single DependencyError.
//
// The owner is the tag of the node which requires the list.
func (g *graph) verifyList(ctx context.Context, host tlw.Host, owner string, list []int, silent bool) error {
	var failures []*Failure
	seen := stringset.New(len(list))
	add := func(f *Failure) {
		if seen.Add(f.Tag) {
			failures = append(failures, f)
		}
	}
	for _, i := range list {
		err := g.verify(ctx, host, i, silent)
		if err == nil {
			continue
		}
		v := g.verifiers[i]
		// Only a failure of the check itself is cached. Anything else came
		// from the closure and is flattened.
		if de, ok := err.(*DependencyError); ok && v.result.state != resultFail {
			for _, f := range de.Failures {
				add(f)
			}
			continue
		}
		add(&Failure{
			Tag:         v.tag,
			Description: v.description,
			Err:         err,
		})
	}
	if len(failures) > 0 {
		return &DependencyError{
			Tag:      owner,
			Failures: failures,
		}
	}
	return nil
}

// record writes a status record unless silent.
func record(ctx context.Context, host tlw.Host, silent bool, rec *tlw.StatusRecord) {
	if silent {
		return
	}
	host.RecordStatus(ctx, rec)
}
