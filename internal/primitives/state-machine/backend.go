// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// KeyValueOption is a single storage change. A nil Value removes the key.
type KeyValueOption struct {
	Key   []byte
	Value []byte
}

// StorageCollection is a set of storage changes, ordered by key.
type StorageCollection []KeyValueOption

// ChildStorageChanges are the changes of one default child trie.
type ChildStorageChanges struct {
	ChildKey []byte
	Changes  StorageCollection
}

// ChildStorageCollection is a set of child trie changes, ordered by child key.
type ChildStorageCollection []ChildStorageChanges

// Transaction is the storage resulting from applying a delta to a state.
// Committing it makes it the state of a block.
type Transaction struct {
	Storage storage.Storage
}

// Backend is a state backend. It is used to read the state of a block and
// compute roots of changed states.
type Backend interface {
	// Storage returns the value at key, or nil.
	Storage(key []byte) ([]byte, error)
	// ChildStorage returns the value at key of the child trie, or nil.
	ChildStorage(childKey, key []byte) ([]byte, error)
	// KeysWithPrefix returns all top trie keys starting with prefix, in
	// ascending order.
	KeysWithPrefix(prefix []byte) ([][]byte, error)
	// StorageRoot calculates the root of the state with the delta applied,
	// and returns it with the transaction applying it.
	StorageRoot(delta StorageCollection, childDeltas ChildStorageCollection) (common.Hash, Transaction, error)
	// TryIntoTrieBackend returns the state as a trie backend, if it is one.
	TryIntoTrieBackend() (TrieBackend, bool)
}

// TrieBackend is a state backend able to prove reads.
type TrieBackend interface {
	Backend
	// Root returns the state root.
	Root() common.Hash
	// ProveRead returns the proof of the values of keys.
	ProveRead(keys ...[]byte) (trie.StorageProof, error)
	// ProveChildRead returns the proof of the values of keys in the child
	// trie, including the proof of the child root in the top trie.
	ProveChildRead(childKey []byte, keys ...[]byte) (trie.StorageProof, error)
}

// StorageChanges are the changes made by executing a block, ready to be
// committed with it.
type StorageChanges struct {
	StorageRoot common.Hash
	Transaction Transaction
	ChangesTrie *ChangesTrieTransaction
}
