// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import (
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
)

// ExecutionStrategies are the strategies used in each execution context.
type ExecutionStrategies struct {
	// Syncing is used to import blocks during initial sync.
	Syncing statemachine.ExecutionStrategy
	// Importing is used to import all other blocks.
	Importing statemachine.ExecutionStrategy
	// BlockConstruction is used to author blocks.
	BlockConstruction statemachine.ExecutionStrategy
	// OffchainWorker is used for offchain calls.
	OffchainWorker statemachine.ExecutionStrategy
	// Other is used for everything else.
	Other statemachine.ExecutionStrategy
}

// DefaultExecutionStrategies returns the strategies used by default.
func DefaultExecutionStrategies() ExecutionStrategies {
	return ExecutionStrategies{
		Syncing:           statemachine.NativeElseWasm,
		Importing:         statemachine.NativeElseWasm,
		BlockConstruction: statemachine.AlwaysWasm,
		OffchainWorker:    statemachine.NativeWhenPossible,
		Other:             statemachine.NativeElseWasm,
	}
}

// ForOrigin returns the strategy used to import a block of the origin.
func (s ExecutionStrategies) ForOrigin(origin consensus.BlockOrigin) statemachine.ExecutionStrategy {
	switch origin {
	case consensus.BlockOriginNetworkInitialSync, consensus.BlockOriginFile:
		return s.Syncing
	default:
		return s.Importing
	}
}
