// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package changestrie

import (
	"sync"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// AnchorBlockID is the block identifying the fork on which changes trie
// roots are looked up.
type AnchorBlockID struct {
	Hash   common.Hash
	Number uint64
}

// RootsStorage gives access to the changes trie roots of a fork.
type RootsStorage interface {
	// Root returns the changes trie root of the block at number on the
	// fork ending at anchor, or nil if that block has no changes trie.
	Root(anchor AnchorBlockID, number uint64) (*common.Hash, error)
}

// Storage gives access to changes tries content.
type Storage interface {
	RootsStorage
	// Trie returns the changes trie with the root given, or nil if it is
	// not stored, for example because it was pruned.
	Trie(root common.Hash) (*trie.Trie, error)
}

// InMemoryStorage keeps changes tries in memory. Roots are looked up by
// number on the last inserted fork, so a backend holding several forks
// resolves roots through its headers instead.
type InMemoryStorage struct {
	mutex   sync.RWMutex
	roots   map[uint64]common.Hash
	numbers map[common.Hash]uint64
	entries map[common.Hash][]trie.KeyValue
}

var _ Storage = (*InMemoryStorage)(nil)

// NewInMemoryStorage returns an empty storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		roots:   make(map[uint64]common.Hash),
		numbers: make(map[common.Hash]uint64),
		entries: make(map[common.Hash][]trie.KeyValue),
	}
}

// Insert stores the changes trie of the block at number.
func (s *InMemoryStorage) Insert(number uint64, root common.Hash, entries []trie.KeyValue) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roots[number] = root
	s.numbers[root] = number
	s.entries[root] = entries
}

// Root implements RootsStorage. The anchor is ignored since a single chain
// is stored.
func (s *InMemoryStorage) Root(_ AnchorBlockID, number uint64) (*common.Hash, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	root, ok := s.roots[number]
	if !ok {
		return nil, nil
	}
	return &root, nil
}

// Trie implements Storage.
func (s *InMemoryStorage) Trie(root common.Hash) (*trie.Trie, error) {
	s.mutex.RLock()
	entries, ok := s.entries[root]
	s.mutex.RUnlock()
	if !ok {
		return nil, nil
	}
	return trie.NewTrieFromEntries(entries)
}

// Prune removes the changes tries of all blocks below oldest and returns
// how many were removed.
func (s *InMemoryStorage) Prune(oldest uint64) (pruned int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for root, number := range s.numbers {
		if number >= oldest {
			continue
		}
		delete(s.numbers, root)
		delete(s.entries, root)
		if s.roots[number] == root {
			delete(s.roots, number)
		}
		pruned++
	}
	return pruned
}
