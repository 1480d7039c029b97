// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package execs provides collection of execution functions for verifiers
// and repair actions and ability to execute them.
package execs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/errors"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

const (
	// DefaultSplitter separates the name and the value of extra arguments
	// defined for verifiers and actions.
	DefaultSplitter = ":"
)

// ExecFunction represents an execution function of a verifier or a repair action.
// The single exec can be associated with one or more nodes.
type ExecFunction func(ctx context.Context, info *ExecInfo) error

// ExecInfo holds input arguments for an exec function.
type ExecInfo struct {
	// Host targeted by the strategy.
	Host tlw.Host
	// ActionArgs are the extra arguments from the configuration.
	ActionArgs []string
	// Timeout of commands run by the exec. Zero means default per exec.
	Timeout time.Duration
}

var (
	// Map of known exec functions used by the engine.
	// Use Register() function to add to this map.
	knownExecMap = make(map[string]ExecFunction)
)

// Register registers new exec function to be used with the engine.
// We panic if a name is reused.
func Register(name string, f ExecFunction) {
	if _, ok := knownExecMap[name]; ok {
		panic(fmt.Sprintf("register exec %q: already registered", name))
	}
	if f == nil {
		panic(fmt.Sprintf("register exec %q: exec function is not provided", name))
	}
	knownExecMap[name] = f
}

// Run runs exec function provided by this package by name.
func Run(ctx context.Context, name string, info *ExecInfo) error {
	e, ok := knownExecMap[name]
	if !ok {
		return errors.Reason("exec %q: not found", name).Err()
	}
	return e(ctx, info)
}

// Exist check if exec function with name is present.
func Exist(name string) bool {
	_, ok := knownExecMap[name]
	return ok
}

// GetActionArgs parses extra arguments of the exec.
func (ei *ExecInfo) GetActionArgs(ctx context.Context) ParsedArgs {
	return ParseActionArgs(ctx, ei.ActionArgs, DefaultSplitter)
}

// ParsedArgs represents key-value pairs parsed from extra args in the
// configuration.
type ParsedArgs map[string]string

// AsString returns the value for the key or the default value when the key
// is not present.
func (parsedArgs ParsedArgs) AsString(ctx context.Context, key, defaultValue string) string {
	if value, ok := parsedArgs[key]; ok && value != "" {
		return value
	}
	log.Debugf(ctx, "Parsed args: key %q not provided, using default %q.", key, defaultValue)
	return defaultValue
}

// AsInt returns the value for the key as an integer.
func (parsedArgs ParsedArgs) AsInt(ctx context.Context, key string, defaultValue int) int {
	if value, ok := parsedArgs[key]; ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Debugf(ctx, "Parsed args: value %q for key %q is not a valid integer, using default %d.", value, key, defaultValue)
	}
	return defaultValue
}

// AsDuration returns the value for the key as a duration.
// Plain numbers are read as seconds.
func (parsedArgs ParsedArgs) AsDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, ok := parsedArgs[key]
	if !ok {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return time.Duration(i) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	log.Debugf(ctx, "Parsed args: value %q for key %q is not a valid duration, using default %s.", value, key, defaultValue)
	return defaultValue
}

// AsBytes returns the value for the key as a number of bytes.
// Eg: 512MB, 2GiB, 1024.
func (parsedArgs ParsedArgs) AsBytes(ctx context.Context, key string, defaultValue uint64) uint64 {
	if value, ok := parsedArgs[key]; ok {
		if b, err := humanize.ParseBytes(value); err == nil {
			return b
		}
		log.Debugf(ctx, "Parsed args: value %q for key %q is not a valid size, using default %s.", value, key, humanize.Bytes(defaultValue))
	}
	return defaultValue
}

// ParseActionArgs parses the action arguments using the splitter, and
// returns ParsedArgs object containing key and values in the action
// arguments. If any mal-formed action arguments are found their value
// is set to empty string.
func ParseActionArgs(ctx context.Context, actionArgs []string, splitter string) ParsedArgs {
	argsMap := ParsedArgs(make(map[string]string))
	for _, a := range actionArgs {
		a := strings.TrimSpace(a)
		if a == "" {
			continue
		}
		i := strings.Index(a, splitter)
		// Separator has to be at least second letter in the string to provide one letter key.
		if i < 1 {
			log.Debugf(ctx, "Parse action args: malformed action arg %q", a)
			argsMap[a] = ""
		} else {
			k := strings.TrimSpace(a[:i])
			v := strings.TrimSpace(a[i+len(splitter):])
			argsMap[k] = v
		}
	}
	return argsMap
}
