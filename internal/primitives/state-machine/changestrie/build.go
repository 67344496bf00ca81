// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package changestrie

import (
	"fmt"
	"sort"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// extrinsicIndexPrefix prefixes the keys of entries mapping a storage key
// to the extrinsics of the block that changed it.
const extrinsicIndexPrefix byte = 0x01

// ExtrinsicIndexKey returns the changes trie key of the entry listing the
// extrinsics which changed the storage key.
func ExtrinsicIndexKey(storageKey []byte) []byte {
	key := make([]byte, 1+len(storageKey))
	key[0] = extrinsicIndexPrefix
	copy(key[1:], storageKey)
	return key
}

// Changes maps the storage keys changed in a block to the indices of the
// extrinsics that changed them.
type Changes map[string][]uint32

// BuildChangesTrie returns the root and entries of the changes trie of a
// block. Indices are stored deduplicated in ascending order.
func BuildChangesTrie(changes Changes) (root common.Hash, entries []trie.KeyValue, err error) {
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries = make([]trie.KeyValue, 0, len(keys))
	for _, key := range keys {
		indices := normaliseIndices(changes[key])
		if len(indices) == 0 {
			continue
		}
		value, err := types.Encode(indices)
		if err != nil {
			return common.Hash{}, nil, fmt.Errorf("encoding extrinsic indices: %w", err)
		}
		entries = append(entries, trie.KeyValue{
			Key:   ExtrinsicIndexKey([]byte(key)),
			Value: value,
		})
	}

	root, err = trie.TrieRoot(entries)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return root, entries, nil
}

func normaliseIndices(indices []uint32) []uint32 {
	if len(indices) == 0 {
		return nil
	}
	sorted := make([]uint32, len(indices))
	copy(sorted, indices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	unique := sorted[:1]
	for _, index := range sorted[1:] {
		if index != unique[len(unique)-1] {
			unique = append(unique, index)
		}
	}
	return unique
}

func decodeIndices(value []byte) ([]uint32, error) {
	var indices []uint32
	err := types.Decode(value, &indices)
	if err != nil {
		return nil, fmt.Errorf("decoding extrinsic indices: %w", err)
	}
	return indices, nil
}
