// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package blockchain

import (
	"slices"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// HashNumber is the hash and number of a block.
type HashNumber struct {
	Hash   common.Hash
	Number uint64
}

// TreeRoute is a tree-route from one block to another in the chain.
//
// All blocks prior to the pivot in the route are the reverse-order unique
// ancestry of the first block, the block at the pivot index is the common
// ancestor, and all blocks after the pivot are the ancestry of the second
// block, in order.
//
// The ancestry sets include the given blocks, and thus the tree-route is
// never empty.
//
//	Tree route from R1 to E2. Retracted is [R1, R2, R3], Common is C, enacted [E1, E2]
//	  <- R3 <- R2 <- R1
//	 /
//	C
//	 \-> E1 -> E2
type TreeRoute struct {
	route []HashNumber
	pivot int
}

// NewTreeRoute computes the tree route between the blocks from and to.
// It fails with ErrUnknownBlock if any header on the way is missing.
func NewTreeRoute(backend HeaderMetadata, from, to common.Hash) (TreeRoute, error) {
	fromData, err := backend.HeaderMetadata(from)
	if err != nil {
		return TreeRoute{}, err
	}
	toData, err := backend.HeaderMetadata(to)
	if err != nil {
		return TreeRoute{}, err
	}

	var (
		fromBranch []HashNumber
		toBranch   []HashNumber
	)

	for toData.Number > fromData.Number {
		toBranch = append(toBranch, HashNumber{toData.Hash, toData.Number})
		toData, err = backend.HeaderMetadata(toData.Parent)
		if err != nil {
			return TreeRoute{}, err
		}
	}

	for fromData.Number > toData.Number {
		fromBranch = append(fromBranch, HashNumber{fromData.Hash, fromData.Number})
		fromData, err = backend.HeaderMetadata(fromData.Parent)
		if err != nil {
			return TreeRoute{}, err
		}
	}

	// numbers are equal now. walk backwards until the block is the same
	for toData.Hash != fromData.Hash {
		toBranch = append(toBranch, HashNumber{toData.Hash, toData.Number})
		toData, err = backend.HeaderMetadata(toData.Parent)
		if err != nil {
			return TreeRoute{}, err
		}

		fromBranch = append(fromBranch, HashNumber{fromData.Hash, fromData.Number})
		fromData, err = backend.HeaderMetadata(fromData.Parent)
		if err != nil {
			return TreeRoute{}, err
		}
	}

	// add the pivot block and append the reversed to-branch
	pivot := len(fromBranch)
	fromBranch = append(fromBranch, HashNumber{toData.Hash, toData.Number})
	slices.Reverse(toBranch)
	fromBranch = append(fromBranch, toBranch...)

	return TreeRoute{
		route: fromBranch,
		pivot: pivot,
	}, nil
}

// Retracted returns all retracted blocks in reverse order (towards the
// common ancestor).
func (tr TreeRoute) Retracted() []HashNumber {
	return tr.route[:tr.pivot]
}

// CommonBlock returns the common ancestor block. This might be one of the
// two blocks of the route.
func (tr TreeRoute) CommonBlock() HashNumber {
	return tr.route[tr.pivot]
}

// Enacted returns the enacted blocks (descendants of the common ancestor).
func (tr TreeRoute) Enacted() []HashNumber {
	return tr.route[tr.pivot+1:]
}

// Last returns the last block of the route, the "to" block.
func (tr TreeRoute) Last() HashNumber {
	return tr.route[len(tr.route)-1]
}

// HeaderMetadata handles header metadata: hash, number, parent hash, etc.
type HeaderMetadata interface {
	HeaderMetadata(hash common.Hash) (CachedHeaderMetadata, error)
	InsertHeaderMetadata(hash common.Hash, headerMetadata CachedHeaderMetadata)
	RemoveHeaderMetadata(hash common.Hash)
}

const defaultHeaderMetadataCacheSize = 5000

// HeaderMetadataCache caches header metadata in an in-memory LRU cache.
// It is safe for concurrent use.
type HeaderMetadataCache struct {
	cache *lru.Cache[common.Hash, CachedHeaderMetadata]
}

// NewHeaderMetadataCache returns a cache holding up to capacity entries,
// or 5000 entries if capacity is zero.
func NewHeaderMetadataCache(capacity uint32) *HeaderMetadataCache {
	size := defaultHeaderMetadataCacheSize
	if capacity > 0 {
		size = int(capacity)
	}
	cache, err := lru.New[common.Hash, CachedHeaderMetadata](size)
	if err != nil {
		// only fails for a non positive size
		panic(err)
	}
	return &HeaderMetadataCache{
		cache: cache,
	}
}

// HeaderMetadata returns the cached metadata for hash, if any.
func (hmc *HeaderMetadataCache) HeaderMetadata(hash common.Hash) (CachedHeaderMetadata, bool) {
	return hmc.cache.Get(hash)
}

// InsertHeaderMetadata caches the metadata for hash.
func (hmc *HeaderMetadataCache) InsertHeaderMetadata(hash common.Hash, metadata CachedHeaderMetadata) {
	hmc.cache.Add(hash, metadata)
}

// RemoveHeaderMetadata removes the metadata for hash.
func (hmc *HeaderMetadataCache) RemoveHeaderMetadata(hash common.Hash) {
	hmc.cache.Remove(hash)
}

// CachedHeaderMetadata is cached header metadata, used to efficiently
// traverse the tree.
type CachedHeaderMetadata struct {
	Hash      common.Hash
	Number    uint64
	Parent    common.Hash
	StateRoot common.Hash
}

// NewCachedHeaderMetadata returns the metadata of the header.
func NewCachedHeaderMetadata(header *types.Header) CachedHeaderMetadata {
	return CachedHeaderMetadata{
		Hash:      header.Hash(),
		Number:    header.Number,
		Parent:    header.ParentHash,
		StateRoot: header.StateRoot,
	}
}

// LowestCommonAncestor returns the common ancestor of the blocks one and two.
func LowestCommonAncestor(backend HeaderMetadata, one, two common.Hash) (HashNumber, error) {
	route, err := NewTreeRoute(backend, one, two)
	if err != nil {
		return HashNumber{}, err
	}
	return route.CommonBlock(), nil
}
