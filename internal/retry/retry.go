// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package retry provides retry methods.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
)

// SleepTag is the clock tag of sleeps between attempts.
const SleepTag = "retry-sleep"

var stopRetryLoopTag = errors.BoolTag{Key: errors.NewTagKey("break retry loop")}

// LoopBreakTag returns tag to break the retry loop per request.
func LoopBreakTag() errors.BoolTag {
	return stopRetryLoopTag
}

// WithTimeout retries execute function in giving time duration.
//
// Example: Check if host is back after reboot, try during 5 minutes with intervals 5 seconds.
//
//	return retry.WithTimeout(ctx, 5*time.Second, 5*time.Minute, func() error {
//		return host.Ping(ctx, 2)
//	}, "wait host up")
func WithTimeout(ctx context.Context, interval, duration time.Duration, f func() error, opName string) error {
	ctx, cancel := clock.WithTimeout(ctx, duration)
	defer cancel()
	startTime := clock.Now(ctx)
	attempts := 0
	hasNext := func() bool {
		return ctx.Err() == nil && clock.Since(ctx, startTime) < duration
	}
	err := retry(ctx, interval, hasNext, func() error {
		attempts++
		err := f()
		log.Debugf(ctx, "Retry %q: attempt %d (used %0.2f of %0.2f seconds), error: %v", opName, attempts, clock.Since(ctx, startTime).Seconds(), duration.Seconds(), err)
		return err
	})
	if err != nil {
		return errors.Annotate(err, endErrorMessage(ctx, opName, attempts, startTime)).Err()
	}
	log.Debugf(ctx, "%s", successMessage(ctx, opName, attempts, startTime))
	return nil
}

// LimitCount retries execute function with limit by numbers attempts.
//
// Example: Check if host is reachable, only try 5 times with interval 2 seconds.
//
//	return retry.LimitCount(ctx, 5, 2*time.Second, func() error {
//		return host.Ping(ctx, 2)
//	}, "check if a host is reachable")
func LimitCount(ctx context.Context, count int, interval time.Duration, f func() error, opName string) error {
	startTime := clock.Now(ctx)
	attempts := 0
	err := retry(ctx, interval, func() bool { return attempts < count }, func() error {
		attempts++
		err := f()
		log.Debugf(ctx, "Retry %q: attempt %d of %d, error: %v", opName, attempts, count, err)
		return err
	})
	if err != nil {
		return errors.Annotate(err, endErrorMessage(ctx, opName, attempts, startTime)).Err()
	}
	log.Debugf(ctx, "%s", successMessage(ctx, opName, attempts, startTime))
	return nil
}

// retry runs next while hasNext allows and next fails.
// The loop is aborted when the context is done or next requests to break.
func retry(ctx context.Context, interval time.Duration, hasNext func() bool, next func() error) error {
	var err error
	for hasNext() {
		if err = next(); err == nil {
			return nil
		}
		if stopRetryLoopTag.In(err) {
			log.Debugf(ctx, "Retry received request for abort!")
			return err
		}
		if !hasNext() {
			break
		}
		if r := clock.Sleep(clock.Tag(ctx, SleepTag), interval); r.Incomplete() {
			return errors.Annotate(r.Err, "retry aborted (last error: %v)", err).Err()
		}
	}
	if err == nil {
		err = errors.Reason("no attempts were made").Err()
	}
	return err
}

// successMessage creates a message for retry when it succeeded.
func successMessage(ctx context.Context, opName string, attempts int, startTime time.Time) string {
	spentTime := clock.Since(ctx, startTime).Seconds()
	if attempts == 1 {
		return fmt.Sprintf("Retry %q: succeeded in first try. Spent %0.2f seconds.", opName, spentTime)
	}
	return fmt.Sprintf("Retry %q: succeeded in %d attempts. Spent %0.2f seconds.", opName, attempts, spentTime)
}

// endErrorMessage creates an error message for the whole retry.
func endErrorMessage(ctx context.Context, opName string, attempts int, startTime time.Time) string {
	return fmt.Sprintf("%s: failed %d attempts took %0.2f seconds", opName, attempts, clock.Since(ctx, startTime).Seconds())
}
