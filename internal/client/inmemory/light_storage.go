// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inmemory

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ImportHeader stores a header without body, as light clients do.
func (bc *Blockchain) ImportHeader(header *types.Header, cache map[string][]byte,
	state api.NewBlockState, aux api.AuxDataOperations) error {
	hash := header.Hash()

	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	err := bc.insert(hash, header, nil, nil, state)
	if err != nil {
		return err
	}
	if len(cache) > 0 {
		bc.cache.insert(hash, cache)
	}
	bc.writeAux(aux)
	return nil
}

// HeaderCHTRoot returns the root of the header CHT covering the block, or
// nil if that CHT is not built.
func (bc *Blockchain) HeaderCHTRoot(chtSize, block uint64) (*common.Hash, error) {
	return bc.chtRoot(chtSize, block, bc.storage.headerCHTRoots)
}

// ChangesTrieCHTRoot returns the root of the changes trie roots CHT
// covering the block, or nil if that CHT is not built.
func (bc *Blockchain) ChangesTrieCHTRoot(chtSize, block uint64) (*common.Hash, error) {
	return bc.chtRoot(chtSize, block, bc.storage.changesTrieCHTRoots)
}

func (bc *Blockchain) chtRoot(chtSize, block uint64, roots map[uint64]common.Hash) (*common.Hash, error) {
	if chtSize != bc.chtSize {
		return nil, fmt.Errorf("%w: CHT size %d requested, storage uses %d",
			blockchain.ErrBackend, chtSize, bc.chtSize)
	}
	chtNumber, ok := cht.BlockToCHTNumber(chtSize, block)
	if !ok {
		return nil, nil
	}

	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	root, ok := roots[cht.StartNumber(chtSize, chtNumber)]
	if !ok {
		return nil, nil
	}
	return &root, nil
}

// pruneCHTGroups builds the CHTs which became buildable once the block was
// finalized and drops the headers they cover.
func (bc *Blockchain) pruneCHTGroups(finalized uint64) error {
	chtNumber, ok := cht.IsBuildRequired(bc.chtSize, finalized)
	if !ok {
		return nil
	}
	start := cht.StartNumber(bc.chtSize, chtNumber)

	hashes := func(number uint64) (*common.Hash, error) {
		hash, ok := bc.storage.hashes[number]
		if !ok {
			return nil, nil
		}
		return &hash, nil
	}
	headerRoot, err := cht.ComputeRoot(bc.chtSize, chtNumber, hashes)
	if err != nil {
		return fmt.Errorf("building header CHT %d: %w", chtNumber, err)
	}
	bc.storage.headerCHTRoots[start] = headerRoot

	changesTrieRoots := make([]*common.Hash, 0, bc.chtSize)
	for number := start; number <= cht.EndNumber(bc.chtSize, chtNumber); number++ {
		block := bc.storage.blocks[bc.storage.hashes[number]]
		root, ok := block.header.ChangesTrieRoot()
		if !ok {
			changesTrieRoots = nil
			break
		}
		changesTrieRoots = append(changesTrieRoots, &root)
	}
	if changesTrieRoots != nil {
		changesTrieRoot, err := cht.ComputeRootFromOptional(bc.chtSize, chtNumber, changesTrieRoots)
		if err != nil {
			return fmt.Errorf("building changes trie CHT %d: %w", chtNumber, err)
		}
		bc.storage.changesTrieCHTRoots[start] = changesTrieRoot
	}

	for number := start; number <= cht.EndNumber(bc.chtSize, chtNumber); number++ {
		hash := bc.storage.hashes[number]
		block := bc.storage.blocks[hash]
		bc.removeBlock(hash, block.header)
		delete(bc.storage.hashes, number)
	}
	logger.Debugf("built CHT %d with root %s and pruned blocks %d to %d",
		chtNumber, headerRoot, start, cht.EndNumber(bc.chtSize, chtNumber))
	return nil
}
