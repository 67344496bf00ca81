// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// callerDepth skips getCallerString, the logger log method and the
// exported logging method calling it.
const callerDepth = 3

type callerSettings struct {
	file *bool
	line *bool
	funC *bool
}

func (c *callerSettings) mergeWith(other callerSettings) {
	mergeValue(&c.file, other.file)
	mergeValue(&c.line, other.line)
	mergeValue(&c.funC, other.funC)
}

func (c *callerSettings) setDefaults() {
	defaultValue(&c.file, false)
	defaultValue(&c.line, false)
	defaultValue(&c.funC, false)
}

func (c callerSettings) enabled() bool {
	return *c.file || *c.line || *c.funC
}

// getCallerString returns the caller fields enabled, joined with colons,
// for example "client.go:L42:ImportBlock".
func getCallerString(settings callerSettings) string {
	if !settings.enabled() {
		return ""
	}

	pc, file, line, ok := runtime.Caller(callerDepth)
	if !ok {
		return "error"
	}

	fields := make([]string, 0, 3)
	if *settings.file {
		fields = append(fields, filepath.Base(file))
	}
	if *settings.line {
		fields = append(fields, "L"+strconv.Itoa(line))
	}
	if *settings.funC {
		if details := runtime.FuncForPC(pc); details != nil {
			fields = append(fields, strings.TrimLeft(filepath.Ext(details.Name()), "."))
		}
	}
	return strings.Join(fields, ":")
}
