// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tlw

import (
	"testing"
)

func TestCommandLine(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		req  *RunRequest
		want string
	}{
		{"command only", &RunRequest{Command: "uname -a"}, "uname -a"},
		{"plain args", &RunRequest{Command: "df", Args: []string{"-P", "-B1", "/"}}, "df -P -B1 /"},
		{"args with spaces", &RunRequest{Command: "test", Args: []string{"-f", "/tmp/my file"}}, "test -f '/tmp/my file'"},
		{"script", &RunRequest{Command: "sh", Args: []string{"-c", "echo a; rm -rf /tmp/x"}}, "sh -c 'echo a; rm -rf /tmp/x'"},
		{"single quote", &RunRequest{Command: "echo", Args: []string{"it's"}}, `echo 'it'"'"'s'`},
		{"empty arg", &RunRequest{Command: "echo", Args: []string{""}}, "echo ''"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := c.req.CommandLine(); got != c.want {
				t.Errorf("CommandLine() = %q, want %q", got, c.want)
			}
		})
	}
}
