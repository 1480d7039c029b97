// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repair

import (
	"context"

	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

// VerifyFunc checks a single condition of the host.
//
// The check has to be fast and free of side effects that change the host.
// Failure is reported only by returning an error.
type VerifyFunc func(ctx context.Context, host tlw.Host) error

type resultState int

const (
	resultUnknown resultState = iota
	resultPass
	resultFail
)

// result is the cached outcome of a verifier.
// err is set only for resultFail.
type result struct {
	state resultState
	err   error
}

type verifier struct {
	node
	check  VerifyFunc
	result result
}

func (v *verifier) subdir() string {
	return "verify." + v.tag
}

// verify runs the verifier with index i against the host.
//
// A cached result is returned without running anything. Otherwise the
// dependencies are verified first, and a failure among them is returned as
// DependencyError without touching the cache of this verifier.
func (g *graph) verify(ctx context.Context, host tlw.Host, i int, silent bool) error {
	v := g.verifiers[i]
	switch v.result.state {
	case resultPass:
		return nil
	case resultFail:
		return v.result.err
	}
	if err := g.verifyList(ctx, host, v.tag, v.deps, silent); err != nil {
		log.Debugf(ctx, "Verifier %q: blocked by dependencies.", v.tag)
		return err
	}
	// Stays failed if the check never returns.
	v.result = result{
		state: resultFail,
		err:   errors.Reason("verifier %q: check did not finish", v.tag).Err(),
	}
	if err := v.check(ctx, host); err != nil {
		if _, ok := err.(*DependencyError); ok {
			// Aggregates of another strategy are a plain failure of this check.
			err = errors.Annotate(err, "verifier %q", v.tag).Err()
		}
		log.Infof(ctx, "Verifier %q: fail. Error: %s", v.tag, err)
		record(ctx, host, silent, &tlw.StatusRecord{
			Status:    tlw.StatusFail,
			Subdir:    v.subdir(),
			Operation: v.description,
			Message:   err.Error(),
		})
		v.result = result{state: resultFail, err: err}
		return err
	}
	log.Infof(ctx, "Verifier %q: pass.", v.tag)
	record(ctx, host, silent, &tlw.StatusRecord{
		Status:    tlw.StatusGood,
		Subdir:    v.subdir(),
		Operation: v.description,
	})
	v.result = result{state: resultPass}
	return nil
}

// invalidate clears the cached result of the verifier with index i and of
// every verifier it depends on.
func (g *graph) invalidate(i int) {
	v := g.verifiers[i]
	v.result = result{}
	for _, d := range v.deps {
		g.invalidate(d)
	}
}
