// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

// BlockStatus is the status of a block as seen by the client.
type BlockStatus uint8

const (
	// BlockStatusUnknown is a block not known to the client.
	BlockStatusUnknown BlockStatus = iota
	// BlockStatusQueued is the block being imported.
	BlockStatusQueued
	// BlockStatusInChainWithState is a block in the chain whose state is
	// available.
	BlockStatusInChainWithState
	// BlockStatusInChainPruned is a block in the chain whose state is not
	// available.
	BlockStatusInChainPruned
)

func (s BlockStatus) String() string {
	switch s {
	case BlockStatusQueued:
		return "Queued"
	case BlockStatusInChainWithState:
		return "InChainWithState"
	case BlockStatusInChainPruned:
		return "InChainPruned"
	default:
		return "Unknown"
	}
}
