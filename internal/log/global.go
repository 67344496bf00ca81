// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

var globalLogger = New()

// NewFromGlobal creates a child logger from the global logger.
func NewFromGlobal(options ...Option) *Logger {
	return globalLogger.New(options...)
}

// Patch patches the global package logger.
func Patch(options ...Option) {
	globalLogger.Patch(options...)
}

// PatchPackage patches the child loggers of the global logger created with
// the context pkg=name, and their own children.
func PatchPackage(name string, options ...Option) {
	globalLogger.patchContext("pkg", name, options)
}

func (l *Logger) patchContext(key, value string, options []Option) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, child := range l.childs {
		if child.settings.hasContext(key, value) {
			child.patchWithoutLocking(options)
		}
	}
}
