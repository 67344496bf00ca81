// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package api

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints"
)

// LeafSetItem is a leaf of the block tree.
type LeafSetItem[H comparable, N constraints.Unsigned] struct {
	Hash   H
	Number N
}

// ImportOutcome is the result of importing a block into the leaf set. It
// must be kept until the storage transaction importing the block is
// committed, so that the import can be undone if it fails.
type ImportOutcome[H comparable, N constraints.Unsigned] struct {
	inserted LeafSetItem[H, N]
	removed  *H
}

// RemoveOutcome is the result of removing a leaf.
type RemoveOutcome[H comparable, N constraints.Unsigned] struct {
	inserted *H
	removed  LeafSetItem[H, N]
}

// FinalizationOutcome holds the leaves displaced by finalizing a height.
type FinalizationOutcome[H comparable, N constraints.Unsigned] struct {
	removed btree.Map[N, []H]
}

// Leaves returns the displaced leaves, highest first.
func (fo FinalizationOutcome[H, N]) Leaves() []H {
	var hashes []H
	fo.removed.Reverse(func(_ N, leaves []H) bool {
		hashes = append(hashes, leaves...)
		return true
	})
	return hashes
}

// LeafSet is the set of blocks without children, ordered by number. Leaves
// with the same number keep their insertion order.
type LeafSet[H comparable, N constraints.Unsigned] struct {
	storage btree.Map[N, []H]
}

// NewLeafSet returns an empty leaf set.
func NewLeafSet[H comparable, N constraints.Unsigned]() *LeafSet[H, N] {
	return &LeafSet[H, N]{}
}

type leafSetEntry[H comparable, N constraints.Unsigned] struct {
	Number N
	Hashes []H
}

// Getter reads a value from a key value store.
type Getter interface {
	Get(key []byte) ([]byte, error)
}

// Putter writes a value to a key value store.
type Putter interface {
	Put(key, value []byte) error
}

// NewLeafSetFromDB reads the leaf set stored at key by PrepareTransaction.
// A missing key gives an empty set.
func NewLeafSetFromDB[H comparable, N constraints.Unsigned](db Getter, key []byte) (*LeafSet[H, N], error) {
	set := NewLeafSet[H, N]()

	encoded, err := db.Get(key)
	if errors.Is(err, chaindb.ErrKeyNotFound) {
		return set, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading leaves: %w", err)
	}

	var entries []leafSetEntry[H, N]
	err = types.Decode(encoded, &entries)
	if err != nil {
		return nil, fmt.Errorf("decoding leaves: %w", err)
	}
	for _, entry := range entries {
		set.storage.Set(entry.Number, entry.Hashes)
	}
	return set, nil
}

// Import updates the leaf set for a block import. The parent, if it was a
// leaf, stops being one.
func (ls *LeafSet[H, N]) Import(hash H, number N, parentHash H) ImportOutcome[H, N] {
	var removed *H
	if number != 0 {
		if ls.removeLeaf(number-1, parentHash) {
			removed = &parentHash
		}
	}
	ls.insertLeaf(number, hash)
	return ImportOutcome[H, N]{
		inserted: LeafSetItem[H, N]{Hash: hash, Number: number},
		removed:  removed,
	}
}

// Remove removes a leaf, making its parent a leaf again when parentHash
// is given. It returns nil if hash was not a leaf.
func (ls *LeafSet[H, N]) Remove(hash H, number N, parentHash *H) *RemoveOutcome[H, N] {
	if !ls.removeLeaf(number, hash) {
		return nil
	}

	var inserted *H
	if parentHash != nil && number != 0 {
		ls.insertLeaf(number-1, *parentHash)
		parent := *parentHash
		inserted = &parent
	}
	return &RemoveOutcome[H, N]{
		inserted: inserted,
		removed:  LeafSetItem[H, N]{Hash: hash, Number: number},
	}
}

// Revert reverts the import of a canonical tip, making its parent a leaf.
func (ls *LeafSet[H, N]) Revert(hash H, number N, parentHash H) {
	if number != 0 {
		ls.insertLeaf(number-1, parentHash)
	}
	ls.removeLeaf(number, hash)
}

// FinalizeHeight removes all leaves below number, since they belong to
// forks that can no longer be extended on top of the finalized chain.
func (ls *LeafSet[H, N]) FinalizeHeight(number N) FinalizationOutcome[H, N] {
	var outcome FinalizationOutcome[H, N]
	for _, below := range ls.below(number) {
		leaves, _ := ls.storage.Delete(below)
		outcome.removed.Set(below, leaves)
	}
	return outcome
}

// DisplacedByFinalizeHeight returns the leaves FinalizeHeight would remove,
// without removing them.
func (ls *LeafSet[H, N]) DisplacedByFinalizeHeight(number N) FinalizationOutcome[H, N] {
	var outcome FinalizationOutcome[H, N]
	for _, below := range ls.below(number) {
		leaves, _ := ls.storage.Get(below)
		cp := make([]H, len(leaves))
		copy(cp, leaves)
		outcome.removed.Set(below, cp)
	}
	return outcome
}

func (ls *LeafSet[H, N]) below(number N) (numbers []N) {
	if number == 0 {
		return nil
	}
	ls.storage.Scan(func(n N, _ []H) bool {
		if n >= number {
			return false
		}
		numbers = append(numbers, n)
		return true
	})
	return numbers
}

// Undo returns a handle undoing leaf set operations.
func (ls *LeafSet[H, N]) Undo() Undo[H, N] {
	return Undo[H, N]{inner: ls}
}

// Hashes returns the leaves, highest first.
func (ls *LeafSet[H, N]) Hashes() []H {
	hashes := make([]H, 0, ls.storage.Len())
	ls.storage.Reverse(func(_ N, leaves []H) bool {
		hashes = append(hashes, leaves...)
		return true
	})
	return hashes
}

// Items returns the leaves with their numbers, highest first.
func (ls *LeafSet[H, N]) Items() []LeafSetItem[H, N] {
	var items []LeafSetItem[H, N]
	ls.storage.Reverse(func(number N, leaves []H) bool {
		for _, hash := range leaves {
			items = append(items, LeafSetItem[H, N]{Hash: hash, Number: number})
		}
		return true
	})
	return items
}

// Count returns the number of leaves.
func (ls *LeafSet[H, N]) Count() (count uint) {
	ls.storage.Scan(func(_ N, leaves []H) bool {
		count += uint(len(leaves))
		return true
	})
	return count
}

// Contains returns true if hash at number is a leaf.
func (ls *LeafSet[H, N]) Contains(number N, hash H) bool {
	leaves, ok := ls.storage.Get(number)
	if !ok {
		return false
	}
	for _, leaf := range leaves {
		if leaf == hash {
			return true
		}
	}
	return false
}

// PrepareTransaction writes the whole leaf set at key.
func (ls *LeafSet[H, N]) PrepareTransaction(tx Putter, key []byte) error {
	entries := make([]leafSetEntry[H, N], 0, ls.storage.Len())
	ls.storage.Scan(func(number N, leaves []H) bool {
		entries = append(entries, leafSetEntry[H, N]{Number: number, Hashes: leaves})
		return true
	})

	encoded, err := types.Encode(entries)
	if err != nil {
		return fmt.Errorf("encoding leaves: %w", err)
	}
	return tx.Put(key, encoded)
}

func (ls *LeafSet[H, N]) insertLeaf(number N, hash H) {
	leaves, _ := ls.storage.Get(number)
	cp := make([]H, len(leaves), len(leaves)+1)
	copy(cp, leaves)
	ls.storage.Set(number, append(cp, hash))
}

// removeLeaf returns true if the leaf was present.
func (ls *LeafSet[H, N]) removeLeaf(number N, hash H) bool {
	leaves, ok := ls.storage.Get(number)
	if !ok {
		return false
	}

	remaining := make([]H, 0, len(leaves))
	found := false
	for _, leaf := range leaves {
		if leaf == hash {
			found = true
			continue
		}
		remaining = append(remaining, leaf)
	}
	if !found {
		return false
	}

	if len(remaining) == 0 {
		ls.storage.Delete(number)
	} else {
		ls.storage.Set(number, remaining)
	}
	return true
}

// Undo reverts leaf set operations from their outcomes.
type Undo[H comparable, N constraints.Unsigned] struct {
	inner *LeafSet[H, N]
}

// UndoImport undoes an import.
func (u Undo[H, N]) UndoImport(outcome ImportOutcome[H, N]) {
	u.inner.removeLeaf(outcome.inserted.Number, outcome.inserted.Hash)
	if outcome.removed != nil {
		u.inner.insertLeaf(outcome.inserted.Number-1, *outcome.removed)
	}
}

// UndoRemove undoes a removal.
func (u Undo[H, N]) UndoRemove(outcome RemoveOutcome[H, N]) {
	if outcome.inserted != nil {
		u.inner.removeLeaf(outcome.removed.Number-1, *outcome.inserted)
	}
	u.inner.insertLeaf(outcome.removed.Number, outcome.removed.Hash)
}

// UndoFinalization undoes a height finalization.
func (u Undo[H, N]) UndoFinalization(outcome FinalizationOutcome[H, N]) {
	outcome.removed.Scan(func(number N, leaves []H) bool {
		for _, hash := range leaves {
			u.inner.insertLeaf(number, hash)
		}
		return true
	})
}
