// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds the remote header requests run by Headers.
const maxConcurrentFetches = 8

// Blockchain is the chain of a light client. Headers are served from the
// local storage and bodies are fetched from remote nodes.
type Blockchain struct {
	Storage
	fetcher *FetcherRef
	chtSize uint64
}

var _ api.Blockchain = (*Blockchain)(nil)

// NewBlockchain returns a light blockchain over storage. chtSize must be
// the CHT size of the storage, cht.Size if zero.
func NewBlockchain(storage Storage, fetcher *FetcherRef, chtSize uint64) *Blockchain {
	if chtSize == 0 {
		chtSize = cht.Size
	}
	return &Blockchain{
		Storage: storage,
		fetcher: fetcher,
		chtSize: chtSize,
	}
}

// Body fetches the body of the block from a remote node.
func (b *Blockchain) Body(hash common.Hash) (types.Body, error) {
	header, err := blockchain.ExpectHeader(b.Storage, hash)
	if err != nil {
		return nil, err
	}
	fetcher, err := b.fetcher.Get()
	if err != nil {
		return nil, err
	}
	return fetcher.Body(context.Background(), RemoteBodyRequest{Header: header})
}

// Justifications returns nil, light clients do not keep justifications.
func (b *Blockchain) Justifications(common.Hash) (types.Justifications, error) {
	return nil, nil
}

// HeaderByNumber returns the canonical header at number. Headers pruned
// from the storage are fetched from a remote node and proven against the
// local CHT root covering them. It returns nil if the block is unknown.
func (b *Blockchain) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	hash, err := b.Storage.Hash(number)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		header, err := b.Storage.Header(*hash)
		if err != nil || header != nil {
			return header, err
		}
	}

	chtRoot, err := b.Storage.HeaderCHTRoot(b.chtSize, number)
	if err != nil {
		return nil, err
	}
	if chtRoot == nil {
		return nil, nil
	}

	fetcher, err := b.fetcher.Get()
	if err != nil {
		return nil, err
	}
	return fetcher.Header(ctx, RemoteHeaderRequest{CHTRoot: *chtRoot, Block: number})
}

// Headers returns the canonical headers from number from to number to,
// both included. Missing headers are fetched concurrently.
func (b *Blockchain) Headers(ctx context.Context, from, to uint64) ([]*types.Header, error) {
	if from > to {
		return nil, fmt.Errorf("invalid range: from %d is above to %d", from, to)
	}

	headers := make([]*types.Header, to-from+1)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentFetches)
	for number := from; number <= to; number++ {
		number := number
		group.Go(func() error {
			header, err := b.HeaderByNumber(ctx, number)
			if err != nil {
				return fmt.Errorf("getting header #%d: %w", number, err)
			}
			if header == nil {
				return blockchain.UnknownBlockError("header #%d", number)
			}
			headers[number-from] = header
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}
	return headers, nil
}
