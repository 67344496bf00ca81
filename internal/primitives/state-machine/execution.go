// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"bytes"
	"fmt"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ExecutionStrategy selects how native and on-chain code are used to run a
// call.
type ExecutionStrategy uint8

const (
	// NativeWhenPossible runs the native code if it can stand in for the
	// on-chain code, and the on-chain code otherwise.
	NativeWhenPossible ExecutionStrategy = iota
	// AlwaysWasm always runs the on-chain code.
	AlwaysWasm
	// Both runs both and reports a mismatch of their results.
	Both
	// NativeElseWasm runs the native code and falls back to the on-chain
	// code if the native call fails.
	NativeElseWasm
)

func (s ExecutionStrategy) String() string {
	switch s {
	case NativeWhenPossible:
		return "NativeWhenPossible"
	case AlwaysWasm:
		return "AlwaysWasm"
	case Both:
		return "Both"
	case NativeElseWasm:
		return "NativeElseWasm"
	default:
		return fmt.Sprintf("ExecutionStrategy(%d)", uint8(s))
	}
}

// ParseExecutionStrategy parses the string form of a strategy.
func ParseExecutionStrategy(s string) (ExecutionStrategy, error) {
	for _, strategy := range []ExecutionStrategy{NativeWhenPossible, AlwaysWasm, Both, NativeElseWasm} {
		if strategy.String() == s {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("execution strategy %q is not recognised", s)
}

// CallResult is the outcome of one execution of a call.
type CallResult struct {
	Value []byte
	Err   error
}

// ConsensusFailureHandler picks the result of a Both call when the native
// and on-chain results differ. Its return value is the result of the call.
type ConsensusFailureHandler func(wasm, native CallResult) CallResult

// ExecutionManager is an execution strategy with its mismatch handler.
type ExecutionManager struct {
	Strategy ExecutionStrategy
	// OnConsensusFailure is only used with the Both strategy. When nil the
	// on-chain result is used.
	OnConsensusFailure ConsensusFailureHandler
}

// CodeExecutor runs calls against externalities.
type CodeExecutor interface {
	// Call runs method. With useNative set the native code runs if it can
	// stand in for the on-chain code. The boolean returned is true if the
	// native code ran.
	Call(ext *Ext, method string, data []byte, useNative bool) (result []byte, native bool, err error)
}

// StateMachine runs a single call on top of a state and overlayed changes.
type StateMachine struct {
	backend  Backend
	overlay  *OverlayedChanges
	executor CodeExecutor
	method   string
	callData []byte
}

// NewStateMachine returns a state machine running method with callData.
func NewStateMachine(backend Backend, overlay *OverlayedChanges, executor CodeExecutor,
	method string, callData []byte) *StateMachine {
	return &StateMachine{
		backend:  backend,
		overlay:  overlay,
		executor: executor,
		method:   method,
		callData: callData,
	}
}

// Execute runs the call with the strategy given. On success the changes it
// made are committed in the overlay, otherwise they are discarded.
func (sm *StateMachine) Execute(manager ExecutionManager) ([]byte, error) {
	var result CallResult
	switch manager.Strategy {
	case AlwaysWasm:
		result, _ = sm.executeAux(false)
	case NativeWhenPossible:
		result, _ = sm.executeAux(true)
	case NativeElseWasm:
		result = sm.nativeElseWasm()
	case Both:
		result = sm.both(manager.OnConsensusFailure)
	default:
		return nil, fmt.Errorf("unknown execution strategy: %s", manager.Strategy)
	}

	if result.Err != nil {
		sm.overlay.DiscardProspective()
		return nil, result.Err
	}
	sm.overlay.CommitProspective()
	return result.Value, nil
}

func (sm *StateMachine) executeAux(useNative bool) (result CallResult, native bool) {
	ext := NewExt(sm.overlay, sm.backend)
	value, native, err := sm.executor.Call(ext, sm.method, sm.callData, useNative)
	return CallResult{Value: value, Err: err}, native
}

func (sm *StateMachine) nativeElseWasm() CallResult {
	original := sm.overlay.prospective.clone()
	result, native := sm.executeAux(true)
	if !native || result.Err == nil {
		return result
	}

	sm.overlay.prospective = original
	result, _ = sm.executeAux(false)
	return result
}

func (sm *StateMachine) both(onConsensusFailure ConsensusFailureHandler) CallResult {
	original := sm.overlay.prospective.clone()
	nativeResult, native := sm.executeAux(true)
	if !native {
		return nativeResult
	}

	nativeProspective := sm.overlay.prospective
	sm.overlay.prospective = original
	wasmResult, _ := sm.executeAux(false)

	if resultsMatch(nativeResult, wasmResult) {
		sm.overlay.prospective = nativeProspective
		return nativeResult
	}

	if onConsensusFailure == nil {
		return wasmResult
	}
	chosen := onConsensusFailure(wasmResult, nativeResult)
	if resultsMatch(chosen, nativeResult) && !resultsMatch(chosen, wasmResult) {
		sm.overlay.prospective = nativeProspective
	}
	return chosen
}

func resultsMatch(a, b CallResult) bool {
	if a.Err != nil || b.Err != nil {
		return a.Err != nil && b.Err != nil
	}
	return bytes.Equal(a.Value, b.Value)
}

// ProveExecution runs the call on a proving wrapper of the trie backend
// with on-chain code and returns its result with the proof of all the
// state it read.
func ProveExecution(backend TrieBackend, overlay *OverlayedChanges, executor CodeExecutor,
	method string, callData []byte) ([]byte, trie.StorageProof, error) {
	proving := NewProvingBackend(backend)
	sm := NewStateMachine(proving, overlay, executor, method, callData)
	result, err := sm.Execute(ExecutionManager{Strategy: AlwaysWasm})
	if err != nil {
		return nil, nil, err
	}

	proof, err := proving.Proof()
	if err != nil {
		return nil, nil, fmt.Errorf("building execution proof: %w", err)
	}
	return result, proof, nil
}

// ExecutionProofCheck runs the call with on-chain code against the state
// made of the proof and returns its result.
func ExecutionProofCheck(root common.Hash, proof trie.StorageProof, overlay *OverlayedChanges,
	executor CodeExecutor, method string, callData []byte) ([]byte, error) {
	backend := NewProofCheckBackend(root, proof)
	sm := NewStateMachine(backend, overlay, executor, method, callData)
	return sm.Execute(ExecutionManager{Strategy: AlwaysWasm})
}
