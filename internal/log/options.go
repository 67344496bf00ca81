// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
)

// Option modifies the settings of a logger. Options given to a child
// logger only override the fields they set.
type Option func(s *settings)

// SetLevel sets the minimum level logged. It defaults to Info.
func SetLevel(level Level) Option {
	return func(s *settings) {
		s.level = &level
	}
}

// SetCallerFile logs the base name of the caller file. Disabled by default.
func SetCallerFile(enabled bool) Option {
	return func(s *settings) { s.caller.file = &enabled }
}

// SetCallerLine logs the line number of the caller. Disabled by default.
func SetCallerLine(enabled bool) Option {
	return func(s *settings) { s.caller.line = &enabled }
}

// SetCallerFunc logs the function name of the caller. Disabled by default.
func SetCallerFunc(enabled bool) Option {
	return func(s *settings) { s.caller.funC = &enabled }
}

// SetFormat sets the output format, FormatConsole by default.
func SetFormat(format Format) Option {
	return func(s *settings) {
		s.format = &format
	}
}

// SetWriter sets the output writer, os.Stdout by default.
func SetWriter(writer io.Writer) Option {
	return func(s *settings) {
		s.writer = writer
	}
}

// AddContext appends a key value pair to every line logged, for example
// AddContext("pkg", "light"). Values of an existing key are appended to.
func AddContext(key, value string) Option {
	return func(s *settings) {
		s.addContext(key, value)
	}
}
