// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"errors"
)

var (
	// ErrNodeInitialised is returned when initialising a database already
	// holding a chain.
	ErrNodeInitialised = errors.New("node already initialised")
	// ErrNodeNotInitialised is returned when starting a node on a database
	// holding no chain.
	ErrNodeNotInitialised = errors.New("node not initialised")
)
