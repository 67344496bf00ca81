// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ProofProvider serves the data and proofs light clients request. It is
// implemented by full clients.
type ProofProvider interface {
	HeaderProof(id types.BlockID) (*types.Header, trie.StorageProof, error)
	ReadProof(id types.BlockID, keys [][]byte) (trie.StorageProof, error)
	ReadChildProof(id types.BlockID, childKey []byte, keys [][]byte) (trie.StorageProof, error)
	ExecutionProof(id types.BlockID, method string, callData []byte) ([]byte, trie.StorageProof, error)
	KeyChangesProof(first, last, minBlock, maxBlock common.Hash, key []byte) (api.ChangesProof, error)
	Body(id types.BlockID) (types.Body, error)
}

// LocalFetcher answers light client requests with an in-process full
// client.
type LocalFetcher struct {
	provider ProofProvider
}

var _ Fetcher = (*LocalFetcher)(nil)

// NewLocalFetcher returns a fetcher answering with provider.
func NewLocalFetcher(provider ProofProvider) *LocalFetcher {
	return &LocalFetcher{provider: provider}
}

// RemoteHeader implements Fetcher.
func (f *LocalFetcher) RemoteHeader(ctx context.Context, request RemoteHeaderRequest) (
	*types.Header, trie.StorageProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.provider.HeaderProof(types.NewBlockIDFromNumber(request.Block))
}

// RemoteRead implements Fetcher.
func (f *LocalFetcher) RemoteRead(ctx context.Context, request RemoteReadRequest) (trie.StorageProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.provider.ReadProof(types.NewBlockIDFromHash(request.Block), request.Keys)
}

// RemoteReadChild implements Fetcher.
func (f *LocalFetcher) RemoteReadChild(ctx context.Context, request RemoteReadChildRequest) (
	trie.StorageProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.provider.ReadChildProof(types.NewBlockIDFromHash(request.Block), request.StorageKey, request.Keys)
}

// RemoteCall implements Fetcher. Only the proof is returned, the result is
// recomputed by the requester.
func (f *LocalFetcher) RemoteCall(ctx context.Context, request RemoteCallRequest) (trie.StorageProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, proof, err := f.provider.ExecutionProof(types.NewBlockIDFromHash(request.Block),
		request.Method, request.CallData)
	return proof, err
}

// RemoteChanges implements Fetcher.
func (f *LocalFetcher) RemoteChanges(ctx context.Context, request RemoteChangesRequest) (
	api.ChangesProof, error) {
	if err := ctx.Err(); err != nil {
		return api.ChangesProof{}, err
	}
	return f.provider.KeyChangesProof(request.FirstBlock.Hash, request.LastBlock.Hash,
		request.TriesRootsFrom.Hash, request.MaxBlock.Hash, request.Key)
}

// RemoteBody implements Fetcher.
func (f *LocalFetcher) RemoteBody(ctx context.Context, request RemoteBodyRequest) (types.Body, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := f.provider.Body(types.NewBlockIDFromHash(request.Header.Hash()))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, blockchain.UnknownBlockError("body of block %s", request.Header.Hash())
	}
	return body, nil
}
