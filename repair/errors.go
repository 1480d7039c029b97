// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package repair

import (
	"fmt"
	"strings"
)

// Failure is a single verifier failure found while evaluating a list of
// verifiers.
type Failure struct {
	// Tag of the failed verifier.
	Tag string
	// Description of the failed verifier.
	Description string
	// Err is the error returned by the verifier check.
	Err error
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Description, f.Err)
}

// DependencyError reports that verifiers required by a node failed.
//
// Failures holds only direct verifier failures. A DependencyError never
// contains another DependencyError: aggregates of the dependencies are
// flattened and an aggregate returned by a check is wrapped as a plain error.
type DependencyError struct {
	// Tag of the node which required the failed verifiers.
	Tag string
	// Failures in the order they were found, one per verifier.
	Failures []*Failure
}

func (e *DependencyError) Error() string {
	return describeFailures(fmt.Sprintf("%q: %d dependencies failed", e.Tag, len(e.Failures)), e.Failures)
}

// Tags provides tags of the failed verifiers.
func (e *DependencyError) Tags() []string {
	tags := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		tags[i] = f.Tag
	}
	return tags
}

// ActionError reports that the repair function of an action failed.
type ActionError struct {
	// Tag of the repair action.
	Tag string
	// Description of the repair action.
	Description string
	// Err is the error returned by the repair function.
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("repair %q: %s: %s", e.Tag, e.Description, e.Err)
}

// Unwrap provides the error returned by the repair function.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// UnfixedError reports that the repair function of an action finished
// successfully but some of the action triggers still fail.
type UnfixedError struct {
	// Tag of the repair action.
	Tag string
	// Description of the repair action.
	Description string
	// Failures found on the second check of the triggers.
	Failures []*Failure
}

func (e *UnfixedError) Error() string {
	return describeFailures(fmt.Sprintf("repair %q: some verification checks still fail", e.Tag), e.Failures)
}

func describeFailures(head string, failures []*Failure) string {
	var b strings.Builder
	b.WriteString(head)
	for _, f := range failures {
		b.WriteString("\n    ")
		b.WriteString(f.String())
	}
	return b.String()
}
