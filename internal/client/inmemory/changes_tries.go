// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inmemory

import (
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// changesTriesStorage serves the changes tries of every fork. Roots are
// read from the digests of the headers of the anchor's fork.
type changesTriesStorage struct {
	bc    *Blockchain
	tries *changestrie.InMemoryStorage
}

var _ changestrie.Storage = (*changesTriesStorage)(nil)

func newChangesTriesStorage(bc *Blockchain) *changesTriesStorage {
	return &changesTriesStorage{
		bc:    bc,
		tries: changestrie.NewInMemoryStorage(),
	}
}

func (s *changesTriesStorage) Root(anchor changestrie.AnchorBlockID, number uint64) (*common.Hash, error) {
	if number > anchor.Number {
		return nil, nil
	}

	s.bc.mtx.RLock()
	defer s.bc.mtx.RUnlock()

	hash := anchor.Hash
	for {
		block, ok := s.bc.storage.blocks[hash]
		if !ok {
			return nil, blockchain.ChangesTrieAccessFailedError(
				"header of block %s on the fork of %s is not stored", hash, anchor.Hash)
		}
		if block.header.Number == number {
			root, ok := block.header.ChangesTrieRoot()
			if !ok {
				return nil, nil
			}
			return &root, nil
		}
		hash = block.header.ParentHash
	}
}

func (s *changesTriesStorage) Trie(root common.Hash) (*trie.Trie, error) {
	return s.tries.Trie(root)
}

func (s *changesTriesStorage) insert(number uint64, root common.Hash, entries []trie.KeyValue) {
	s.tries.Insert(number, root, entries)
}

func (s *changesTriesStorage) prune(oldest uint64) {
	pruned := s.tries.Prune(oldest)
	if pruned > 0 {
		logger.Debugf("pruned %d changes tries below block %d", pruned, oldest)
	}
}
