// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repair

import (
	"context"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

// RepairFunc performs a corrective action on the host.
// Failure is reported only by returning an error.
type RepairFunc func(ctx context.Context, host tlw.Host) error

// ActionStatus is the outcome of the last repair attempt of an action.
type ActionStatus string

const (
	// Blocked means dependencies of the action failed.
	Blocked ActionStatus = "blocked"
	// Unknown means the attempt did not reach a defined outcome.
	Unknown ActionStatus = "unknown"
	// Untriggered means all triggers passed and nothing was done.
	Untriggered ActionStatus = "untriggered"
	// Repaired means the repair ran and all triggers pass after it.
	Repaired ActionStatus = "repaired"
	// FailedAction means the repair function returned an error.
	FailedAction ActionStatus = "failed-action"
	// FailedTrigger means the repair ran but some triggers still fail.
	FailedTrigger ActionStatus = "failed-trigger"
)

type action struct {
	node
	triggers []int
	fix      RepairFunc
	status   ActionStatus
}

func (a *action) subdir() string {
	return "repair." + a.tag
}

// repairAgainst runs the repair if any trigger fails and then checks the
// triggers again.
//
// Every path which gets past the dependency check leaves a final status.
func (a *action) repairAgainst(ctx context.Context, g *graph, host tlw.Host, silent bool) error {
	a.status = Blocked
	if err := g.verifyList(ctx, host, a.tag, a.deps, silent); err != nil {
		log.Infof(ctx, "Repair %q: blocked by dependencies.", a.tag)
		return err
	}
	a.status = Unknown
	if err := g.verifyList(ctx, host, a.tag, a.triggers, silent); err == nil {
		log.Debugf(ctx, "Repair %q: no trigger fails, skipping.", a.tag)
		a.status = Untriggered
		return nil
	}
	log.Infof(ctx, "Repair %q: started.", a.tag)
	record(ctx, host, silent, &tlw.StatusRecord{
		Status:    tlw.StatusStart,
		Subdir:    a.subdir(),
		Operation: a.description,
	})
	if err := a.fix(ctx, host); err != nil {
		log.Infof(ctx, "Repair %q: fail. Error: %s", a.tag, err)
		record(ctx, host, silent, &tlw.StatusRecord{
			Status:    tlw.StatusFail,
			Subdir:    a.subdir(),
			Operation: a.description,
			Message:   err.Error(),
		})
		a.end(ctx, host, silent, FailedAction)
		return &ActionError{
			Tag:         a.tag,
			Description: a.description,
			Err:         err,
		}
	}
	for _, t := range a.triggers {
		g.invalidate(t)
	}
	err := g.verifyList(ctx, host, a.tag, a.triggers, silent)
	switch e := err.(type) {
	case nil:
		log.Infof(ctx, "Repair %q: finished successfully.", a.tag)
		a.end(ctx, host, silent, Repaired)
		return nil
	case *DependencyError:
		log.Infof(ctx, "Repair %q: triggers still fail.", a.tag)
		a.end(ctx, host, silent, FailedTrigger)
		return &UnfixedError{
			Tag:         a.tag,
			Description: a.description,
			Failures:    e.Failures,
		}
	default:
		log.Errorf(ctx, "Repair %q: unexpected error on second check of triggers: %s", a.tag, err)
		a.end(ctx, host, silent, Unknown)
		return err
	}
}

// end sets the final status and writes the closing status record.
func (a *action) end(ctx context.Context, host tlw.Host, silent bool, status ActionStatus) {
	a.status = status
	code := tlw.StatusEndFail
	if status == Repaired {
		code = tlw.StatusEndGood
	}
	record(ctx, host, silent, &tlw.StatusRecord{
		Status:    code,
		Subdir:    a.subdir(),
		Operation: a.description,
		Message:   string(status),
	})
}
