// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import "errors"

var (
	// ErrCodeNotFound is returned when the state holds no runtime code.
	ErrCodeNotFound = errors.New("runtime code not found in state")
	// ErrAPINotSupported is returned when the runtime does not implement
	// the API version of an entry point.
	ErrAPINotSupported = errors.New("runtime API not supported")
)
