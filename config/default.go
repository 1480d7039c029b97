// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import "time"

// Default provides the built-in strategy for Linux hosts.
func Default() *Configuration {
	return &Configuration{
		Verifiers: []*Verifier{
			{
				Tag:         "ping",
				Description: "Host responds to ping",
				Exec:        "host_ping",
				Args:        []string{"count:2"},
			},
			{
				Tag:          "ssh",
				Description:  "Host accepts ssh commands",
				Exec:         "host_ssh",
				Dependencies: []string{"ping"},
				Timeout:      30 * time.Second,
			},
			{
				Tag:          "python",
				Description:  "Python is present on the host",
				Exec:         "python_present",
				Dependencies: []string{"ssh"},
			},
			{
				Tag:          "root_space",
				Description:  "Root filesystem has enough free space",
				Exec:         "disk_space",
				Args:         []string{"path:/", "min:1GB"},
				Dependencies: []string{"ssh"},
			},
			{
				Tag:          "tmp_writable",
				Description:  "Temporary directory is writable",
				Exec:         "path_writable",
				Args:         []string{"path:/tmp"},
				Dependencies: []string{"ssh"},
			},
		},
		Actions: []*Action{
			{
				Tag:          "clean_tmp",
				Description:  "Remove old files from temporary directories",
				Exec:         "clean_tmp",
				Args:         []string{"path:/tmp", "days:1"},
				Dependencies: []string{"ssh"},
				Triggers:     []string{"root_space", "tmp_writable"},
			},
			{
				Tag:          "reboot",
				Description:  "Reboot the host",
				Exec:         "host_reboot",
				Args:         []string{"delay:10", "timeout:300"},
				Dependencies: []string{"ssh"},
				Triggers:     []string{"python", "root_space", "tmp_writable"},
			},
		},
	}
}
