// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// InMemoryBackend is an immutable state held in memory. Tries are built
// lazily the first time a root or a proof is needed.
type InMemoryBackend struct {
	mutex   sync.Mutex
	storage storage.Storage

	top      *trie.Trie
	children map[string]*trie.Trie
}

var _ TrieBackend = (*InMemoryBackend)(nil)

// NewInMemoryBackend returns a state holding the storage given. The
// storage must not be modified afterwards.
func NewInMemoryBackend(s storage.Storage) *InMemoryBackend {
	if s.ChildrenDefault == nil {
		s.ChildrenDefault = make(map[string]*storage.StorageChild)
	}
	return &InMemoryBackend{storage: s}
}

// NewEmptyInMemoryBackend returns a state without any entries.
func NewEmptyInMemoryBackend() *InMemoryBackend {
	return NewInMemoryBackend(storage.NewStorage())
}

// Storage implements Backend. Child trie root keys resolve to the root of
// the child trie.
func (b *InMemoryBackend) Storage(key []byte) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if common.IsChildStorageKey(key) {
		err := b.buildTries()
		if err != nil {
			return nil, err
		}
		return b.top.Get(key)
	}
	return common.CopyBytes(b.storage.Get(key)), nil
}

// ChildStorage implements Backend.
func (b *InMemoryBackend) ChildStorage(childKey, key []byte) ([]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return common.CopyBytes(b.storage.GetChild(childKey, key)), nil
}

// KeysWithPrefix implements Backend.
func (b *InMemoryBackend) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var keys [][]byte
	b.storage.Top.Ascend(string(prefix), func(key string, _ []byte) bool {
		if !bytes.HasPrefix([]byte(key), prefix) {
			return false
		}
		keys = append(keys, []byte(key))
		return true
	})
	return keys, nil
}

// Pairs returns all top trie entries in ascending key order.
func (b *InMemoryBackend) Pairs() []trie.KeyValue {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	pairs := make([]trie.KeyValue, 0, b.storage.Top.Len())
	b.storage.Top.Scan(func(key string, value []byte) bool {
		pairs = append(pairs, trie.KeyValue{Key: []byte(key), Value: value})
		return true
	})
	return pairs
}

// StorageRoot implements Backend.
func (b *InMemoryBackend) StorageRoot(delta StorageCollection, childDeltas ChildStorageCollection) (
	common.Hash, Transaction, error) {
	b.mutex.Lock()
	updated := b.storage.Copy()
	b.mutex.Unlock()

	for _, change := range delta {
		updated.Set(change.Key, change.Value)
	}
	for _, child := range childDeltas {
		for _, change := range child.Changes {
			updated.SetChild(child.ChildKey, change.Key, change.Value)
		}
	}

	next := NewInMemoryBackend(updated)
	root, err := next.rootHash()
	if err != nil {
		return common.Hash{}, Transaction{}, err
	}
	return root, Transaction{Storage: updated}, nil
}

// TryIntoTrieBackend implements Backend.
func (b *InMemoryBackend) TryIntoTrieBackend() (TrieBackend, bool) {
	return b, true
}

// Root implements TrieBackend. It panics if the trie cannot be built,
// which only happens on a corrupted in memory trie.
func (b *InMemoryBackend) Root() common.Hash {
	root, err := b.rootHash()
	if err != nil {
		panic(err)
	}
	return root
}

// ProveRead implements TrieBackend.
func (b *InMemoryBackend) ProveRead(keys ...[]byte) (trie.StorageProof, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	err := b.buildTries()
	if err != nil {
		return nil, err
	}
	return b.top.Prove(keys...)
}

// ProveChildRead implements TrieBackend.
func (b *InMemoryBackend) ProveChildRead(childKey []byte, keys ...[]byte) (trie.StorageProof, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	err := b.buildTries()
	if err != nil {
		return nil, err
	}

	topProof, err := b.top.Prove(common.ChildStorageKey(childKey))
	if err != nil {
		return nil, err
	}

	child, ok := b.children[string(childKey)]
	if !ok {
		// the top trie proves the child trie is absent
		return topProof, nil
	}
	childProof, err := child.Prove(keys...)
	if err != nil {
		return nil, err
	}
	return trie.Merge(topProof, childProof), nil
}

// Apply returns the state resulting from committing the transaction.
func (b *InMemoryBackend) Apply(transaction Transaction) *InMemoryBackend {
	return NewInMemoryBackend(transaction.Storage)
}

func (b *InMemoryBackend) rootHash() (common.Hash, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	err := b.buildTries()
	if err != nil {
		return common.Hash{}, err
	}
	return b.top.Hash(), nil
}

// buildTries must be called with the mutex held.
func (b *InMemoryBackend) buildTries() (err error) {
	if b.top != nil {
		return nil
	}

	children := make(map[string]*trie.Trie, len(b.storage.ChildrenDefault))
	top := trie.NewEmptyTrie()

	b.storage.Top.Scan(func(key string, value []byte) bool {
		if common.IsChildStorageKey([]byte(key)) {
			// child roots are derived from the child tries
			return true
		}
		err = top.Put([]byte(key), value)
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("building top trie: %w", err)
	}

	for _, name := range b.storage.ChildNames() {
		child := trie.NewEmptyTrie()
		b.storage.ChildrenDefault[name].Data.Scan(func(key string, value []byte) bool {
			err = child.Put([]byte(key), value)
			return err == nil
		})
		if err != nil {
			return fmt.Errorf("building child trie %s: %w", name, err)
		}
		childRoot := child.Hash()
		if childRoot == trie.EmptyRoot {
			continue
		}
		err = top.Put(common.ChildStorageKey([]byte(name)), childRoot.ToBytes())
		if err != nil {
			return fmt.Errorf("inserting child root of %s: %w", name, err)
		}
		children[name] = child
	}

	b.top = top
	b.children = children
	return nil
}
