// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import "bytes"

var (
	// CodeKey is the key where runtime code is stored in the trie
	CodeKey = []byte(":code")

	// ChangesTrieConfigKey holds the SCALE encoded changes trie configuration,
	// if changes tries are enabled for the chain.
	ChangesTrieConfigKey = []byte(":changes_trie")

	// BlockNumberKey is written by block initialisation with the number of
	// the block being built.
	BlockNumberKey = []byte(":block_number")

	// ExtrinsicIndexKey holds the index of the extrinsic being applied while
	// a block is built or executed.
	ExtrinsicIndexKey = []byte(":extrinsic_index")

	// ChildStorageKeyPrefix is the prefix of all child storage keys in the
	// top level trie.
	ChildStorageKeyPrefix = []byte(":child_storage:")

	// DefaultChildStorageKeyPrefix is the prefix of default child tries.
	DefaultChildStorageKeyPrefix = []byte(":child_storage:default:")
)

// IsChildStorageKey returns true if the key belongs to the child storage
// namespace.
func IsChildStorageKey(key []byte) bool {
	return bytes.HasPrefix(key, ChildStorageKeyPrefix)
}

// ChildStorageKey returns the top level key under which the root of the
// default child trie with the given name is stored.
func ChildStorageKey(name []byte) []byte {
	key := make([]byte, 0, len(DefaultChildStorageKeyPrefix)+len(name))
	key = append(key, DefaultChildStorageKeyPrefix...)
	return append(key, name...)
}
