// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

// Format is the format of the log output.
type Format uint8

const (
	// FormatConsole is the human readable console format.
	FormatConsole Format = iota
)

type contextKeyValues struct {
	key    string
	values []string
}

type settings struct {
	writer  io.Writer
	level   *Level
	format  *Format
	caller  callerSettings
	context []contextKeyValues
}

func newSettings(options []Option) (settings settings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// mergeWith sets values of the receiver settings with the values
// of the other settings, if they are not unset.
func (s *settings) mergeWith(other settings) {
	if other.writer != nil {
		s.writer = other.writer
	}
	mergeValue(&s.level, other.level)
	mergeValue(&s.format, other.format)
	s.caller.mergeWith(other.caller)

	if len(other.context) == 0 {
		return
	}
	// copy so the receiver never shares value slices with a parent logger
	context := s.context
	s.context = make([]contextKeyValues, 0, len(context)+len(other.context))
	for _, kv := range context {
		s.addContext(kv.key, kv.values...)
	}
	for _, kv := range other.context {
		s.addContext(kv.key, kv.values...)
	}
}

// addContext appends the values to the key, adding the key last if it
// is not present.
func (s *settings) addContext(key string, values ...string) {
	for i := range s.context {
		if s.context[i].key == key {
			s.context[i].values = append(s.context[i].values, values...)
			return
		}
	}
	s.context = append(s.context, contextKeyValues{
		key:    key,
		values: append([]string(nil), values...),
	})
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}
	defaultValue(&s.level, Info)
	defaultValue(&s.format, FormatConsole)
	s.caller.setDefaults()
}

// mergeValue sets *dst to a copy of *other if other is set.
func mergeValue[T any](dst **T, other *T) {
	if other == nil {
		return
	}
	value := *other
	*dst = &value
}

func defaultValue[T any](dst **T, value T) {
	if *dst == nil {
		*dst = &value
	}
}

func (s *settings) hasContext(key, value string) bool {
	for _, kv := range s.context {
		if kv.key != key {
			continue
		}
		for _, v := range kv.values {
			if v == value {
				return true
			}
		}
	}
	return false
}
