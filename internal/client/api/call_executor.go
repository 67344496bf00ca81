// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package api

import (
	"github.com/ChainSafe/chainstate/dot/types"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// CallExecutor executes runtime calls against the state of blocks.
type CallExecutor interface {
	// Call executes method at the block with the given strategy and returns
	// the encoded result. Changes to the state are dropped.
	Call(at common.Hash, method string, callData []byte, strategy statemachine.ExecutionStrategy) ([]byte, error)
	// ContextualCall executes method at the block, keeping its changes in
	// overlay. If initializeBlock is not nil, Core_initialize_block is
	// executed first with it.
	ContextualCall(at common.Hash, method string, callData []byte, overlay *statemachine.OverlayedChanges,
		initializeBlock *types.Header, manager statemachine.ExecutionManager) ([]byte, error)
	// CallAtState executes method against state, keeping its changes in
	// overlay.
	CallAtState(state statemachine.Backend, overlay *statemachine.OverlayedChanges, method string,
		callData []byte, manager statemachine.ExecutionManager) ([]byte, error)
	// RuntimeVersion returns the runtime version at the block.
	RuntimeVersion(at common.Hash) (types.RuntimeVersion, error)
	// ProveAtTrieState executes method against state and returns the result
	// with the proof of the state read.
	ProveAtTrieState(state statemachine.TrieBackend, overlay *statemachine.OverlayedChanges, method string,
		callData []byte) ([]byte, trie.StorageProof, error)
	// CodeExecutor returns the code executor running the calls.
	CodeExecutor() statemachine.CodeExecutor
}
