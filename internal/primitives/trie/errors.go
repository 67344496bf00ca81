// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import "errors"

var (
	// ErrInvalidProof is returned when a proof does not prove the requested
	// key against the given root.
	ErrInvalidProof = errors.New("invalid trie proof")
	// ErrEmptyProof is returned when a non empty root is checked against a
	// proof without nodes.
	ErrEmptyProof = errors.New("proof is empty")
)
