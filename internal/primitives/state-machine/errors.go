// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import "errors"

// ErrUnsupportedOnProofBackend is returned for operations a proof backed
// state cannot answer, such as key enumeration.
var ErrUnsupportedOnProofBackend = errors.New("operation is not supported by a proof backed state")
