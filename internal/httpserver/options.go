// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package httpserver

import (
	"time"
)

const (
	defaultReadTimeout       = 10 * time.Second
	defaultReadHeaderTimeout = time.Second
	defaultShutdownTimeout   = 3 * time.Second
)

// Option is a functional option for the HTTP server. A zero duration
// keeps the default.
type Option func(s *optionalSettings)

type optionalSettings struct {
	readTimeout       time.Duration
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
}

func newOptionalSettings(options []Option) (settings optionalSettings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

func (s optionalSettings) withDefaults() optionalSettings {
	for _, field := range []struct {
		value        *time.Duration
		defaultValue time.Duration
	}{
		{&s.readTimeout, defaultReadTimeout},
		{&s.readHeaderTimeout, defaultReadHeaderTimeout},
		{&s.shutdownTimeout, defaultShutdownTimeout},
	} {
		if *field.value == 0 {
			*field.value = field.defaultValue
		}
	}
	return s
}

// ReadTimeout bounds reading a whole request, 10s by default.
func ReadTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.readTimeout = timeout }
}

// ReadHeaderTimeout bounds reading the request headers, 1s by default.
func ReadHeaderTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.readHeaderTimeout = timeout }
}

// ShutdownTimeout bounds the graceful shutdown once the context is
// canceled, 3s by default.
func ShutdownTimeout(timeout time.Duration) Option {
	return func(s *optionalSettings) { s.shutdownTimeout = timeout }
}
