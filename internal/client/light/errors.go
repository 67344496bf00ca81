// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import "errors"

var (
	// ErrExtrinsicsRootInvalid is returned when a remote body does not match
	// the extrinsics root of its header.
	ErrExtrinsicsRootInvalid = errors.New("invalid extrinsics root")
	// ErrInvalidChangesProof is returned when a remote changes proof does
	// not match the request.
	ErrInvalidChangesProof = errors.New("invalid changes proof")
)
