// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package changestrie

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
)

var (
	// ErrInvalidRange is returned when the range end is below its start,
	// or above the anchor block.
	ErrInvalidRange = errors.New("invalid changes trie range")
	// ErrTrieMissing is returned when the changes trie of a block in the
	// range is not stored.
	ErrTrieMissing = errors.New("changes trie is missing")
)

// BlockExtrinsic identifies an extrinsic by its block number and its index
// in the block.
type BlockExtrinsic struct {
	Block     uint64
	Extrinsic uint32
}

// Range is the range of blocks searched for changes. Blocks from Begin to
// Max, both inclusive, are searched on the fork ending at End.
type Range struct {
	Begin uint64
	End   AnchorBlockID
	Max   uint64
}

func (r Range) validate() error {
	if r.Begin == 0 {
		return fmt.Errorf("%w: genesis has no changes trie", ErrInvalidRange)
	}
	if r.Max < r.Begin || r.Max > r.End.Number {
		return fmt.Errorf("%w: begin %d, max %d, end %d",
			ErrInvalidRange, r.Begin, r.Max, r.End.Number)
	}
	return nil
}

// KeyChanges returns the extrinsics which changed key in the range, newest
// block first and in ascending extrinsic order within a block.
func KeyChanges(storage Storage, r Range, key []byte) ([]BlockExtrinsic, error) {
	err := r.validate()
	if err != nil {
		return nil, err
	}

	var changes []BlockExtrinsic
	indexKey := ExtrinsicIndexKey(key)
	for number := r.Max; number >= r.Begin; number-- {
		root, err := storage.Root(r.End, number)
		if err != nil {
			return nil, fmt.Errorf("getting changes trie root of block %d: %w", number, err)
		}
		if root == nil {
			continue
		}

		changesTrie, err := storage.Trie(*root)
		if err != nil {
			return nil, fmt.Errorf("loading changes trie of block %d: %w", number, err)
		}
		if changesTrie == nil {
			return nil, fmt.Errorf("%w: block %d, root %s", ErrTrieMissing, number, root)
		}

		value, err := changesTrie.Get(indexKey)
		if err != nil {
			return nil, fmt.Errorf("reading changes trie of block %d: %w", number, err)
		}
		changes, err = appendChanges(changes, number, value)
		if err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// KeyChangesProof returns the proof of the changes of key in the range.
func KeyChangesProof(storage Storage, r Range, key []byte) (trie.StorageProof, error) {
	err := r.validate()
	if err != nil {
		return nil, err
	}

	var proofs []trie.StorageProof
	indexKey := ExtrinsicIndexKey(key)
	for number := r.Max; number >= r.Begin; number-- {
		root, err := storage.Root(r.End, number)
		if err != nil {
			return nil, fmt.Errorf("getting changes trie root of block %d: %w", number, err)
		}
		if root == nil {
			continue
		}

		changesTrie, err := storage.Trie(*root)
		if err != nil {
			return nil, fmt.Errorf("loading changes trie of block %d: %w", number, err)
		}
		if changesTrie == nil {
			return nil, fmt.Errorf("%w: block %d, root %s", ErrTrieMissing, number, root)
		}

		proof, err := changesTrie.Prove(indexKey)
		if err != nil {
			return nil, fmt.Errorf("proving changes trie of block %d: %w", number, err)
		}
		proofs = append(proofs, proof)
	}
	return trie.Merge(proofs...), nil
}

// KeyChangesProofCheck verifies a proof built by KeyChangesProof against
// the roots given and returns the proven changes, ordered as KeyChanges
// orders them.
func KeyChangesProofCheck(roots RootsStorage, proof trie.StorageProof,
	r Range, key []byte) ([]BlockExtrinsic, error) {
	err := r.validate()
	if err != nil {
		return nil, err
	}

	db := proof.DB()
	var changes []BlockExtrinsic
	indexKey := ExtrinsicIndexKey(key)
	for number := r.Max; number >= r.Begin; number-- {
		root, err := roots.Root(r.End, number)
		if err != nil {
			return nil, fmt.Errorf("getting changes trie root of block %d: %w", number, err)
		}
		if root == nil {
			continue
		}

		value, err := trie.ReadProofCheckOnDB(*root, db, indexKey)
		if err != nil {
			return nil, fmt.Errorf("checking changes of block %d: %w", number, err)
		}
		changes, err = appendChanges(changes, number, value)
		if err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func appendChanges(changes []BlockExtrinsic, number uint64, value []byte) ([]BlockExtrinsic, error) {
	if value == nil {
		return changes, nil
	}
	indices, err := decodeIndices(value)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}
	for _, index := range indices {
		changes = append(changes, BlockExtrinsic{Block: number, Extrinsic: index})
	}
	return changes, nil
}
