// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// RemoteCallExecutor executes calls on remote nodes and checks their
// execution proofs.
type RemoteCallExecutor struct {
	blockchain   *Blockchain
	fetcher      *FetcherRef
	codeExecutor statemachine.CodeExecutor
}

var _ api.CallExecutor = (*RemoteCallExecutor)(nil)

// NewRemoteCallExecutor returns a call executor fetching its results with
// fetcher. codeExecutor is the executor the execution proofs are checked
// with.
func NewRemoteCallExecutor(bc *Blockchain, fetcher *FetcherRef,
	codeExecutor statemachine.CodeExecutor) *RemoteCallExecutor {
	return &RemoteCallExecutor{
		blockchain:   bc,
		fetcher:      fetcher,
		codeExecutor: codeExecutor,
	}
}

// Call executes the method on a remote node. The strategy is ignored.
func (e *RemoteCallExecutor) Call(at common.Hash, method string, callData []byte,
	_ statemachine.ExecutionStrategy) ([]byte, error) {
	header, err := blockchain.ExpectHeader(e.blockchain, at)
	if err != nil {
		return nil, err
	}
	fetcher, err := e.fetcher.Get()
	if err != nil {
		return nil, err
	}
	return fetcher.Call(context.Background(), RemoteCallRequest{
		Block:    at,
		Header:   header,
		Method:   method,
		CallData: callData,
	})
}

// ContextualCall is not available on remote nodes.
func (*RemoteCallExecutor) ContextualCall(_ common.Hash, method string, _ []byte,
	_ *statemachine.OverlayedChanges, _ *types.Header, _ statemachine.ExecutionManager) ([]byte, error) {
	return nil, fmt.Errorf("%w: contextual call of %s", blockchain.ErrNotAvailableOnLightClient, method)
}

// CallAtState is not available on remote nodes.
func (*RemoteCallExecutor) CallAtState(_ statemachine.Backend, _ *statemachine.OverlayedChanges,
	method string, _ []byte, _ statemachine.ExecutionManager) ([]byte, error) {
	return nil, fmt.Errorf("%w: call of %s at state", blockchain.ErrNotAvailableOnLightClient, method)
}

// RuntimeVersion calls Core_version on a remote node.
func (e *RemoteCallExecutor) RuntimeVersion(at common.Hash) (types.RuntimeVersion, error) {
	return executor.CallAPIAt(e, at, executor.CoreVersion, executor.Nothing{}, statemachine.NativeWhenPossible)
}

// ProveAtTrieState is not available on remote nodes.
func (*RemoteCallExecutor) ProveAtTrieState(_ statemachine.TrieBackend, _ *statemachine.OverlayedChanges,
	method string, _ []byte) ([]byte, trie.StorageProof, error) {
	return nil, nil, fmt.Errorf("%w: proving %s", blockchain.ErrNotAvailableOnLightClient, method)
}

// CodeExecutor returns the executor execution proofs are checked with.
func (e *RemoteCallExecutor) CodeExecutor() statemachine.CodeExecutor {
	return e.codeExecutor
}

// GenesisCallExecutor executes calls locally on the genesis state and
// remotely on the other blocks.
type GenesisCallExecutor struct {
	backend *Backend
	local   api.CallExecutor
	remote  api.CallExecutor
}

var _ api.CallExecutor = (*GenesisCallExecutor)(nil)

// NewGenesisCallExecutor returns a call executor over the backend.
func NewGenesisCallExecutor(backend *Backend, local, remote api.CallExecutor) *GenesisCallExecutor {
	return &GenesisCallExecutor{
		backend: backend,
		local:   local,
		remote:  remote,
	}
}

func (e *GenesisCallExecutor) at(hash common.Hash) api.CallExecutor {
	if e.backend.IsLocalStateAvailable(hash) {
		return e.local
	}
	return e.remote
}

// Call implements api.CallExecutor.
func (e *GenesisCallExecutor) Call(at common.Hash, method string, callData []byte,
	strategy statemachine.ExecutionStrategy) ([]byte, error) {
	return e.at(at).Call(at, method, callData, strategy)
}

// ContextualCall implements api.CallExecutor.
func (e *GenesisCallExecutor) ContextualCall(at common.Hash, method string, callData []byte,
	overlay *statemachine.OverlayedChanges, initializeBlock *types.Header,
	manager statemachine.ExecutionManager) ([]byte, error) {
	return e.at(at).ContextualCall(at, method, callData, overlay, initializeBlock, manager)
}

// CallAtState implements api.CallExecutor.
func (e *GenesisCallExecutor) CallAtState(state statemachine.Backend, overlay *statemachine.OverlayedChanges,
	method string, callData []byte, manager statemachine.ExecutionManager) ([]byte, error) {
	return e.local.CallAtState(state, overlay, method, callData, manager)
}

// RuntimeVersion implements api.CallExecutor.
func (e *GenesisCallExecutor) RuntimeVersion(at common.Hash) (types.RuntimeVersion, error) {
	return e.at(at).RuntimeVersion(at)
}

// ProveAtTrieState implements api.CallExecutor.
func (e *GenesisCallExecutor) ProveAtTrieState(state statemachine.TrieBackend,
	overlay *statemachine.OverlayedChanges, method string, callData []byte) ([]byte, trie.StorageProof, error) {
	return e.local.ProveAtTrieState(state, overlay, method, callData)
}

// CodeExecutor implements api.CallExecutor.
func (e *GenesisCallExecutor) CodeExecutor() statemachine.CodeExecutor {
	return e.local.CodeExecutor()
}
