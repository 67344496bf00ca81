// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package blockchain

import (
	"testing"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMetadataBackend struct {
	blocks map[common.Hash]CachedHeaderMetadata
}

func (b *testMetadataBackend) HeaderMetadata(hash common.Hash) (CachedHeaderMetadata, error) {
	metadata, ok := b.blocks[hash]
	if !ok {
		return CachedHeaderMetadata{}, UnknownBlockError("header metadata not found: %s", hash)
	}
	return metadata, nil
}

func (b *testMetadataBackend) InsertHeaderMetadata(hash common.Hash, metadata CachedHeaderMetadata) {
	b.blocks[hash] = metadata
}

func (b *testMetadataBackend) RemoveHeaderMetadata(hash common.Hash) {
	delete(b.blocks, hash)
}

func (b *testMetadataBackend) add(name string, number uint64, parent string) common.Hash {
	hash := common.MustBlake2bHash([]byte(name))
	var parentHash common.Hash
	if parent != "" {
		parentHash = common.MustBlake2bHash([]byte(parent))
	}
	b.blocks[hash] = CachedHeaderMetadata{Hash: hash, Number: number, Parent: parentHash}
	return hash
}

// newTestTree builds
//
//	G <- A1 <- A2 <- A3 <- A4
//	      \-- B2 <- B3
//	 \-- C1
func newTestTree() *testMetadataBackend {
	b := &testMetadataBackend{blocks: make(map[common.Hash]CachedHeaderMetadata)}
	b.add("G", 0, "")
	b.add("A1", 1, "G")
	b.add("A2", 2, "A1")
	b.add("A3", 3, "A2")
	b.add("A4", 4, "A3")
	b.add("B2", 2, "A1")
	b.add("B3", 3, "B2")
	b.add("C1", 1, "G")
	return b
}

func hn(name string, number uint64) HashNumber {
	return HashNumber{Hash: common.MustBlake2bHash([]byte(name)), Number: number}
}

func Test_NewTreeRoute(t *testing.T) {
	t.Parallel()

	backend := newTestTree()

	testCases := map[string]struct {
		from, to  string
		retracted []HashNumber
		common    HashNumber
		enacted   []HashNumber
	}{
		"same_block": {
			from: "A2", to: "A2",
			common: hn("A2", 2),
		},
		"ancestor_to_descendant": {
			from: "A1", to: "A4",
			common:  hn("A1", 1),
			enacted: []HashNumber{hn("A2", 2), hn("A3", 3), hn("A4", 4)},
		},
		"descendant_to_ancestor": {
			from: "A3", to: "G",
			retracted: []HashNumber{hn("A3", 3), hn("A2", 2), hn("A1", 1)},
			common:    hn("G", 0),
		},
		"fork_switch": {
			from: "A4", to: "B3",
			retracted: []HashNumber{hn("A4", 4), hn("A3", 3), hn("A2", 2)},
			common:    hn("A1", 1),
			enacted:   []HashNumber{hn("B2", 2), hn("B3", 3)},
		},
		"fork_switch_to_shorter": {
			from: "B3", to: "C1",
			retracted: []HashNumber{hn("B3", 3), hn("B2", 2), hn("A1", 1)},
			common:    hn("G", 0),
			enacted:   []HashNumber{hn("C1", 1)},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			from := common.MustBlake2bHash([]byte(testCase.from))
			to := common.MustBlake2bHash([]byte(testCase.to))

			route, err := NewTreeRoute(backend, from, to)
			require.NoError(t, err)

			if testCase.retracted == nil {
				assert.Empty(t, route.Retracted())
			} else {
				assert.Equal(t, testCase.retracted, route.Retracted())
			}
			assert.Equal(t, testCase.common, route.CommonBlock())
			if testCase.enacted == nil {
				assert.Empty(t, route.Enacted())
			} else {
				assert.Equal(t, testCase.enacted, route.Enacted())
			}
			assert.Equal(t, to, route.Last().Hash)
		})
	}
}

func Test_NewTreeRoute_unknownBlock(t *testing.T) {
	t.Parallel()

	backend := newTestTree()
	orphan := backend.add("orphan", 3, "missing")

	_, err := NewTreeRoute(backend, common.MustBlake2bHash([]byte("A4")), orphan)
	assert.ErrorIs(t, err, ErrUnknownBlock)

	_, err = NewTreeRoute(backend, common.Hash{9}, orphan)
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

// Every pair of blocks of the test tree gives a route whose common block is
// an ancestor of both ends and whose segments link parent to child.
func Test_NewTreeRoute_commonAncestor(t *testing.T) {
	t.Parallel()

	backend := newTestTree()

	isAncestor := func(ancestor, block common.Hash) bool {
		for {
			if block == ancestor {
				return true
			}
			metadata, err := backend.HeaderMetadata(block)
			if err != nil || metadata.Number == 0 {
				return false
			}
			block = metadata.Parent
		}
	}

	for from := range backend.blocks {
		for to := range backend.blocks {
			route, err := NewTreeRoute(backend, from, to)
			require.NoError(t, err)

			commonBlock := route.CommonBlock()
			assert.True(t, isAncestor(commonBlock.Hash, from))
			assert.True(t, isAncestor(commonBlock.Hash, to))

			// retracted: from down to the child of common
			previous := from
			for i, block := range route.Retracted() {
				if i == 0 {
					assert.Equal(t, from, block.Hash)
				} else {
					assert.Equal(t, backend.blocks[previous].Parent, block.Hash)
				}
				previous = block.Hash
			}
			if len(route.Retracted()) > 0 {
				assert.Equal(t, commonBlock.Hash, backend.blocks[previous].Parent)
			}

			// enacted: child of common up to to
			parent := commonBlock.Hash
			for _, block := range route.Enacted() {
				assert.Equal(t, parent, backend.blocks[block.Hash].Parent)
				parent = block.Hash
			}
			assert.Equal(t, to, parent)
		}
	}
}

func Test_HeaderMetadataCache(t *testing.T) {
	t.Parallel()

	cache := NewHeaderMetadataCache(2)
	a := CachedHeaderMetadata{Hash: common.Hash{1}, Number: 1}
	b := CachedHeaderMetadata{Hash: common.Hash{2}, Number: 2}
	c := CachedHeaderMetadata{Hash: common.Hash{3}, Number: 3}

	cache.InsertHeaderMetadata(a.Hash, a)
	cache.InsertHeaderMetadata(b.Hash, b)
	cache.InsertHeaderMetadata(c.Hash, c)

	_, ok := cache.HeaderMetadata(a.Hash)
	assert.False(t, ok, "least recently used entry should be evicted")

	got, ok := cache.HeaderMetadata(c.Hash)
	require.True(t, ok)
	assert.Equal(t, c, got)

	cache.RemoveHeaderMetadata(c.Hash)
	_, ok = cache.HeaderMetadata(c.Hash)
	assert.False(t, ok)
}
