// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package execs

import (
	"context"

	"go.chromium.org/luci/common/errors"
)

// samplePassExec provides example to run exec which always pass.
func samplePassExec(ctx context.Context, info *ExecInfo) error {
	return nil
}

// sampleFailExec provides example to run exec which always fail.
func sampleFailExec(ctx context.Context, info *ExecInfo) error {
	return errors.Reason("failed").Err()
}

func init() {
	Register("sample_pass", samplePassExec)
	Register("sample_fail", sampleFailExec)
}
