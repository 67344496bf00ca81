// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// LocalCallExecutor executes calls against the states held by a backend.
type LocalCallExecutor struct {
	backend  api.Backend
	executor statemachine.CodeExecutor
}

// NewLocalCallExecutor returns a call executor over the states of backend.
func NewLocalCallExecutor(backend api.Backend, executor statemachine.CodeExecutor) *LocalCallExecutor {
	return &LocalCallExecutor{
		backend:  backend,
		executor: executor,
	}
}

// Call implements api.CallExecutor.
func (e *LocalCallExecutor) Call(at common.Hash, method string, callData []byte,
	strategy statemachine.ExecutionStrategy) ([]byte, error) {
	state, err := e.backend.StateAt(at)
	if err != nil {
		return nil, err
	}
	defer state.Release()

	return e.CallAtState(state, statemachine.NewOverlayedChanges(), method, callData,
		statemachine.ExecutionManager{Strategy: strategy})
}

// ContextualCall implements api.CallExecutor.
func (e *LocalCallExecutor) ContextualCall(at common.Hash, method string, callData []byte,
	overlay *statemachine.OverlayedChanges, initializeBlock *types.Header,
	manager statemachine.ExecutionManager) ([]byte, error) {
	state, err := e.backend.StateAt(at)
	if err != nil {
		return nil, err
	}
	defer state.Release()

	if initializeBlock != nil {
		data, err := CoreInitializeBlock.Encode(initializeBlock)
		if err != nil {
			return nil, err
		}
		_, err = e.CallAtState(state, overlay, CoreInitializeBlock.Name, data, manager)
		if err != nil {
			return nil, fmt.Errorf("initializing block #%d: %w", initializeBlock.Number, err)
		}
	}

	return e.CallAtState(state, overlay, method, callData, manager)
}

// CallAtState implements api.CallExecutor.
func (e *LocalCallExecutor) CallAtState(state statemachine.Backend, overlay *statemachine.OverlayedChanges,
	method string, callData []byte, manager statemachine.ExecutionManager) ([]byte, error) {
	logger.Tracef("calling %s with strategy %s", method, manager.Strategy)
	sm := statemachine.NewStateMachine(state, overlay, e.executor, method, callData)
	return sm.Execute(manager)
}

// RuntimeVersion implements api.CallExecutor.
func (e *LocalCallExecutor) RuntimeVersion(at common.Hash) (types.RuntimeVersion, error) {
	return CallAPIAt(e, at, CoreVersion, Nothing{}, statemachine.NativeWhenPossible)
}

// ProveAtTrieState implements api.CallExecutor.
func (e *LocalCallExecutor) ProveAtTrieState(state statemachine.TrieBackend, overlay *statemachine.OverlayedChanges,
	method string, callData []byte) ([]byte, trie.StorageProof, error) {
	return statemachine.ProveExecution(state, overlay, e.executor, method, callData)
}

// CodeExecutor implements api.CallExecutor.
func (e *LocalCallExecutor) CodeExecutor() statemachine.CodeExecutor {
	return e.executor
}
