// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"
	"sync"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// RemoteHeaderRequest requests the canonical header at Block, proven
// against the local CHT root covering it.
type RemoteHeaderRequest struct {
	CHTRoot    common.Hash
	Block      uint64
	RetryCount *uint
}

// RemoteReadRequest requests the values of keys in the state of a block.
type RemoteReadRequest struct {
	Block      common.Hash
	Header     *types.Header
	Keys       [][]byte
	RetryCount *uint
}

// RemoteReadChildRequest requests the values of keys in a child trie in
// the state of a block.
type RemoteReadChildRequest struct {
	Block      common.Hash
	Header     *types.Header
	StorageKey []byte
	Keys       [][]byte
	RetryCount *uint
}

// RemoteCallRequest requests the execution of a runtime call at a block.
type RemoteCallRequest struct {
	Block      common.Hash
	Header     *types.Header
	Method     string
	CallData   []byte
	RetryCount *uint
}

// RemoteChangesRequest requests the changes of Key in the blocks from
// FirstBlock to LastBlock, looked up on the fork of MaxBlock. The
// requester holds the changes trie roots of the blocks from TriesRootsFrom
// to MaxBlock, in TriesRoots.
type RemoteChangesRequest struct {
	FirstBlock     blockchain.HashNumber
	LastBlock      blockchain.HashNumber
	MaxBlock       blockchain.HashNumber
	TriesRootsFrom blockchain.HashNumber
	TriesRoots     []common.Hash
	Key            []byte
	RetryCount     *uint
}

// RemoteBodyRequest requests the body of the block with Header.
type RemoteBodyRequest struct {
	Header     *types.Header
	RetryCount *uint
}

// Fetcher asks remote nodes for data. Answers are not trusted and must be
// checked with a FetchChecker.
type Fetcher interface {
	RemoteHeader(ctx context.Context, request RemoteHeaderRequest) (*types.Header, trie.StorageProof, error)
	RemoteRead(ctx context.Context, request RemoteReadRequest) (trie.StorageProof, error)
	RemoteReadChild(ctx context.Context, request RemoteReadChildRequest) (trie.StorageProof, error)
	RemoteCall(ctx context.Context, request RemoteCallRequest) (trie.StorageProof, error)
	RemoteChanges(ctx context.Context, request RemoteChangesRequest) (api.ChangesProof, error)
	RemoteBody(ctx context.Context, request RemoteBodyRequest) (types.Body, error)
}

// FetchChecker checks the answers of remote nodes to requests.
type FetchChecker interface {
	CheckHeaderProof(request RemoteHeaderRequest, header *types.Header, proof trie.StorageProof) (
		*types.Header, error)
	CheckReadProof(request RemoteReadRequest, proof trie.StorageProof) (map[string][]byte, error)
	CheckReadChildProof(request RemoteReadChildRequest, proof trie.StorageProof) (map[string][]byte, error)
	CheckExecutionProof(request RemoteCallRequest, proof trie.StorageProof) ([]byte, error)
	CheckChangesProof(request RemoteChangesRequest, proof api.ChangesProof) ([]changestrie.BlockExtrinsic, error)
	CheckBody(request RemoteBodyRequest, body types.Body) (types.Body, error)
}

// CheckedFetcher fetches remote data and returns it once checked.
type CheckedFetcher interface {
	Header(ctx context.Context, request RemoteHeaderRequest) (*types.Header, error)
	Read(ctx context.Context, request RemoteReadRequest) (map[string][]byte, error)
	ReadChild(ctx context.Context, request RemoteReadChildRequest) (map[string][]byte, error)
	Call(ctx context.Context, request RemoteCallRequest) ([]byte, error)
	Changes(ctx context.Context, request RemoteChangesRequest) ([]changestrie.BlockExtrinsic, error)
	Body(ctx context.Context, request RemoteBodyRequest) (types.Body, error)
}

// FetcherRef is a handle on a fetcher which is set and cleared by its
// owner, typically the network service. Holders must expect it to be
// unset.
type FetcherRef struct {
	mutex   sync.RWMutex
	fetcher CheckedFetcher
}

// NewFetcherRef returns a handle on fetcher, which may be nil.
func NewFetcherRef(fetcher CheckedFetcher) *FetcherRef {
	return &FetcherRef{fetcher: fetcher}
}

// Set points the handle to fetcher. A nil fetcher clears it.
func (r *FetcherRef) Set(fetcher CheckedFetcher) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.fetcher = fetcher
}

// Get returns the fetcher, failing with
// blockchain.ErrNotAvailableOnLightClient if it is unset.
func (r *FetcherRef) Get() (CheckedFetcher, error) {
	if r == nil {
		return nil, blockchain.ErrNotAvailableOnLightClient
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.fetcher == nil {
		return nil, blockchain.ErrNotAvailableOnLightClient
	}
	return r.fetcher, nil
}
