// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
)

// NextHeader returns the header Core_initialize_block is called with before
// a proved call on the state of header.
func NextHeader(header *types.Header) *types.Header {
	return &types.Header{
		ParentHash: header.Hash(),
		Number:     header.Number + 1,
	}
}

// ProveExecution executes method on the state of header, after initializing
// the next block, and returns the result with the proof of everything read.
func ProveExecution(callExecutor api.CallExecutor, state statemachine.TrieBackend, header *types.Header,
	method string, callData []byte) ([]byte, trie.StorageProof, error) {
	initData, err := CoreInitializeBlock.Encode(NextHeader(header))
	if err != nil {
		return nil, nil, err
	}

	overlay := statemachine.NewOverlayedChanges()
	_, initProof, err := callExecutor.ProveAtTrieState(state, overlay, CoreInitializeBlock.Name, initData)
	if err != nil {
		return nil, nil, fmt.Errorf("proving block initialization: %w", err)
	}

	result, proof, err := callExecutor.ProveAtTrieState(state, overlay, method, callData)
	if err != nil {
		return nil, nil, fmt.Errorf("proving %s: %w", method, err)
	}
	return result, trie.Merge(initProof, proof), nil
}

// CheckExecutionProof replays ProveExecution against the state made of the
// proof and the state root of header, and returns the result.
func CheckExecutionProof(executor statemachine.CodeExecutor, header *types.Header, method string,
	callData []byte, proof trie.StorageProof) ([]byte, error) {
	initData, err := CoreInitializeBlock.Encode(NextHeader(header))
	if err != nil {
		return nil, err
	}

	overlay := statemachine.NewOverlayedChanges()
	_, err = statemachine.ExecutionProofCheck(header.StateRoot, proof, overlay, executor,
		CoreInitializeBlock.Name, initData)
	if err != nil {
		return nil, fmt.Errorf("replaying block initialization: %w", err)
	}
	return statemachine.ExecutionProofCheck(header.StateRoot, proof, overlay, executor, method, callData)
}
