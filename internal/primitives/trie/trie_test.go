// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"testing"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []KeyValue {
	return []KeyValue{
		{Key: []byte("do"), Value: []byte("verb")},
		{Key: []byte("dog"), Value: []byte("puppy")},
		{Key: []byte("doge"), Value: []byte("coin")},
		{Key: []byte("horse"), Value: []byte("stallion")},
	}
}

func Test_NewEmptyTrie(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EmptyRoot, NewEmptyTrie().Hash())
}

func Test_TrieRoot_orderIndependent(t *testing.T) {
	t.Parallel()

	entries := testEntries()
	root, err := TrieRoot(entries)
	require.NoError(t, err)

	reversed := make([]KeyValue, len(entries))
	for i, entry := range entries {
		reversed[len(entries)-1-i] = entry
	}
	reversedRoot, err := TrieRoot(reversed)
	require.NoError(t, err)

	assert.Equal(t, root, reversedRoot)
	assert.NotEqual(t, EmptyRoot, root)
}

func Test_ProveRead_ReadProofCheck(t *testing.T) {
	t.Parallel()

	entries := testEntries()
	root, err := TrieRoot(entries)
	require.NoError(t, err)

	testCases := map[string]struct {
		key   []byte
		value []byte
	}{
		"present":         {key: []byte("dog"), value: []byte("puppy")},
		"present_leaf":    {key: []byte("horse"), value: []byte("stallion")},
		"absent":          {key: []byte("cat")},
		"absent_extended": {key: []byte("dogecoin")},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			proof, err := ProveRead(entries, testCase.key)
			require.NoError(t, err)
			require.False(t, proof.IsEmpty())

			value, err := ReadProofCheckOne(root, proof, testCase.key)
			require.NoError(t, err)
			assert.Equal(t, testCase.value, value)
		})
	}
}

func Test_ReadProofCheck_wrongRoot(t *testing.T) {
	t.Parallel()

	proof, err := ProveRead(testEntries(), []byte("dog"))
	require.NoError(t, err)

	_, err = ReadProofCheckOne(common.Hash{1}, proof, []byte("dog"))
	assert.ErrorIs(t, err, ErrInvalidProof)

	_, err = ReadProofCheckOne(common.Hash{1}, nil, []byte("dog"))
	assert.ErrorIs(t, err, ErrEmptyProof)
}

func Test_ReadProofCheck_multipleKeys(t *testing.T) {
	t.Parallel()

	entries := testEntries()
	root, err := TrieRoot(entries)
	require.NoError(t, err)

	proof, err := ProveRead(entries, []byte("do"), []byte("horse"), []byte("zebra"))
	require.NoError(t, err)

	values, err := ReadProofCheck(root, proof, []byte("do"), []byte("horse"), []byte("zebra"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"do":    []byte("verb"),
		"horse": []byte("stallion"),
		"zebra": nil,
	}, values)
}

func Test_StorageProof_dedup(t *testing.T) {
	t.Parallel()

	proof := NewStorageProof([][]byte{{3}, {1}, {3}, {2}})
	assert.Equal(t, StorageProof{{1}, {2}, {3}}, proof)

	merged := Merge(StorageProof{{2}, {4}}, proof)
	assert.Equal(t, StorageProof{{1}, {2}, {3}, {4}}, merged)
}

func Test_OrderedTrieRoot(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EmptyRoot, OrderedTrieRoot(nil))

	a := OrderedTrieRoot([][]byte{{1}, {2}})
	b := OrderedTrieRoot([][]byte{{2}, {1}})
	assert.NotEqual(t, a, b)
}
