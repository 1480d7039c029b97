// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package localtlw

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// ping represent simple network verification by ping by hostname.
func ping(ctx context.Context, addr string, count int) error {
	if addr == "" {
		return errors.Reason("ping: addr is empty").Err()
	}
	if count <= 0 {
		return errors.Reason("ping %q: count must be positive", addr).Err()
	}
	cmd := exec.CommandContext(ctx, "ping",
		addr,
		"-c",
		strconv.Itoa(count), // How many times will ping.
		"-W",
		"1", // How long wait for response.
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Annotate(err, "ping %q: %s", addr, strings.TrimSpace(stderr.String())).Err()
	}
	return nil
}
