// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package cht implements Canonical Hash Tries.
//
// A CHT is a trie over the hashes of Size consecutive canonical blocks,
// keyed by the big endian block number. Once the CHT of a group is built
// and stored, the headers of the group can be pruned and still be proven
// to remote peers. CHT number N covers blocks [N*Size+1, (N+1)*Size]; the
// genesis block belongs to no CHT.
package cht

import (
	"encoding/binary"
	"fmt"

	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Size is the number of blocks covered by a CHT.
const Size uint64 = 2048

// HashFunc returns the canonical hash of the block at number, or nil if it
// is not known.
type HashFunc func(number uint64) (*common.Hash, error)

// BlockToCHTNumber returns the number of the CHT covering the block. The
// boolean is false for the genesis block.
func BlockToCHTNumber(size, block uint64) (chtNumber uint64, ok bool) {
	if block == 0 {
		return 0, false
	}
	return (block - 1) / size, true
}

// StartNumber returns the number of the first block covered by the CHT.
func StartNumber(size, chtNumber uint64) uint64 {
	return chtNumber*size + 1
}

// EndNumber returns the number of the last block covered by the CHT.
func EndNumber(size, chtNumber uint64) uint64 {
	return (chtNumber + 1) * size
}

// IsBuildRequired returns the number of the CHT to build once the block is
// finalized. A CHT is built when the first block of the group two groups
// ahead of it is finalized, so the two most recent groups are never built.
func IsBuildRequired(size, block uint64) (chtNumber uint64, ok bool) {
	blockCHTNumber, ok := BlockToCHTNumber(size, block)
	if !ok || blockCHTNumber < 2 {
		return 0, false
	}
	if StartNumber(size, blockCHTNumber) != block {
		return 0, false
	}
	return blockCHTNumber - 2, true
}

// MaxCHTNumber returns the number of the most recent CHT that can be built
// given the highest canonical block.
func MaxCHTNumber(size, maxCanonicalBlock uint64) (chtNumber uint64, ok bool) {
	maxNumber, ok := BlockToCHTNumber(size, maxCanonicalBlock)
	if !ok || maxNumber < 2 {
		return 0, false
	}
	return maxNumber - 2, true
}

// EncodeCHTKey returns the CHT trie key of a block: its number as 8 big
// endian bytes.
func EncodeCHTKey(number uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, number)
	return key
}

// ComputeRoot returns the root of the CHT, failing with
// blockchain.ErrMissingHashRequiredForCHT if a hash of the group is
// unknown.
func ComputeRoot(size, chtNumber uint64, hashes HashFunc) (common.Hash, error) {
	pairs, err := buildPairs(size, chtNumber, hashes)
	if err != nil {
		return common.Hash{}, err
	}
	return trie.TrieRoot(pairs)
}

// ComputeRootFromOptional returns the root of the CHT over the values
// given, starting at the first block of the CHT. Any missing value fails
// with blockchain.ErrMissingHashRequiredForCHT, so partial CHTs are never
// built. It is used for CHTs over changes trie roots.
func ComputeRootFromOptional(size, chtNumber uint64, values []*common.Hash) (common.Hash, error) {
	start := StartNumber(size, chtNumber)
	return ComputeRoot(size, chtNumber, func(number uint64) (*common.Hash, error) {
		index := number - start
		if index >= uint64(len(values)) {
			return nil, nil
		}
		return values[index], nil
	})
}

// BuildProof returns the proof of the hashes of blocks within the CHT.
func BuildProof(size, chtNumber uint64, blocks []uint64, hashes HashFunc) (trie.StorageProof, error) {
	pairs, err := buildPairs(size, chtNumber, hashes)
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, len(blocks))
	for i, block := range blocks {
		keys[i] = EncodeCHTKey(block)
	}
	return trie.ProveRead(pairs, keys...)
}

// CheckProof verifies that remoteHash is the hash of the block at
// localNumber in the CHT with root localRoot.
func CheckProof(localRoot common.Hash, localNumber uint64,
	remoteHash common.Hash, remoteProof trie.StorageProof) error {
	value, err := trie.ReadProofCheckOne(localRoot, remoteProof, EncodeCHTKey(localNumber))
	if err != nil {
		return fmt.Errorf("%w: %s", blockchain.ErrInvalidCHTProof, err)
	}
	return checkValue(localNumber, value, remoteHash)
}

// CheckProofOnDB is CheckProof over an already decoded proof, so that the
// proof of several blocks is decoded once.
func CheckProofOnDB(localRoot common.Hash, localNumber uint64,
	remoteHash common.Hash, db *trie.ProofDB) error {
	value, err := trie.ReadProofCheckOnDB(localRoot, db, EncodeCHTKey(localNumber))
	if err != nil {
		return fmt.Errorf("%w: %s", blockchain.ErrInvalidCHTProof, err)
	}
	return checkValue(localNumber, value, remoteHash)
}

func checkValue(number uint64, value []byte, remoteHash common.Hash) error {
	if len(value) != common.HashLength {
		return fmt.Errorf("%w: block %d is not in the CHT", blockchain.ErrInvalidCHTProof, number)
	}
	localHash := common.BytesToHash(value)
	if localHash != remoteHash {
		return fmt.Errorf("%w: block %d has hash %s in the CHT, remote claims %s",
			blockchain.ErrInvalidCHTProof, number, localHash, remoteHash)
	}
	return nil
}

// ForEachCHTGroup calls fn for each group of blocks covered by the same
// CHT, in order. Blocks must be in strictly ascending order, and it panics
// otherwise. It fails if a block is the genesis block.
func ForEachCHTGroup(size uint64, blocks []uint64, fn func(chtNumber uint64, blocks []uint64) error) error {
	var (
		currentCHTNumber uint64
		currentBlocks    []uint64
	)
	for i, block := range blocks {
		if i > 0 && block <= blocks[i-1] {
			panic(fmt.Sprintf("ForEachCHTGroup only supports strictly ascending blocks, got %d after %d",
				block, blocks[i-1]))
		}

		chtNumber, ok := BlockToCHTNumber(size, block)
		if !ok {
			return blockchain.BackendError("cannot compute CHT root for the block #%d", block)
		}

		if len(currentBlocks) > 0 && chtNumber != currentCHTNumber {
			err := fn(currentCHTNumber, currentBlocks)
			if err != nil {
				return err
			}
			currentBlocks = nil
		}

		currentBlocks = append(currentBlocks, block)
		currentCHTNumber = chtNumber
	}

	if len(currentBlocks) > 0 {
		return fn(currentCHTNumber, currentBlocks)
	}
	return nil
}

func buildPairs(size, chtNumber uint64, hashes HashFunc) ([]trie.KeyValue, error) {
	start := StartNumber(size, chtNumber)
	pairs := make([]trie.KeyValue, 0, size)
	for number := start; number < start+size; number++ {
		hash, err := hashes(number)
		if err != nil {
			return nil, err
		}
		if hash == nil {
			return nil, blockchain.MissingHashRequiredForCHTError(chtNumber, number)
		}
		pairs = append(pairs, trie.KeyValue{
			Key:   EncodeCHTKey(number),
			Value: hash.ToBytes(),
		})
	}
	return pairs, nil
}
