// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"testing"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/client/executor/testruntime"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCHTSize = 4

type rootsFunc func(number uint64) (*common.Hash, error)

func (f rootsFunc) Root(_ changestrie.AnchorBlockID, number uint64) (*common.Hash, error) {
	return f(number)
}

func Test_Client_HeaderProof(t *testing.T) {
	t.Parallel()

	client, backend := newTestClient(t, Options{CHTSize: testCHTSize}, false)
	chain := importChain(t, client, client.Info().GenesisHash, testCHTSize)
	bc := backend.Blockchain()

	chtRoot, err := cht.ComputeRoot(testCHTSize, 0, bc.Hash)
	require.NoError(t, err)

	header, proof, err := client.HeaderProof(types.NewBlockIDFromNumber(2))
	require.NoError(t, err)
	assert.Equal(t, chain[1], header.Hash())
	assert.NoError(t, cht.CheckProof(chtRoot, 2, header.Hash(), proof))

	err = cht.CheckProof(chtRoot, 2, chain[2], proof)
	assert.ErrorIs(t, err, blockchain.ErrInvalidCHTProof)

	_, _, err = client.HeaderProof(types.NewBlockIDFromNumber(0))
	assert.ErrorIs(t, err, blockchain.ErrBackend)

	// the CHT of block 5 cannot be built before its group is complete
	importBlock(t, client, chain[3], nil)
	_, _, err = client.HeaderProof(types.NewBlockIDFromNumber(5))
	assert.ErrorIs(t, err, blockchain.ErrMissingHashRequiredForCHT)
}

func Test_Client_ReadProof(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, Options{}, false)
	hash := importBlock(t, client, client.Info().GenesisHash, nil,
		testruntime.Set([]byte("key"), []byte("value")),
		testruntime.SetChild([]byte("child"), []byte("key"), []byte("child value")))
	id := types.NewBlockIDFromHash(hash)
	header, err := client.Header(id)
	require.NoError(t, err)

	proof, err := client.ReadProof(id, [][]byte{[]byte("key"), []byte("missing")})
	require.NoError(t, err)
	values, err := trie.ReadProofCheck(header.StateRoot, proof, []byte("key"), []byte("missing"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), values["key"])
	assert.Nil(t, values["missing"])

	childProof, err := client.ReadChildProof(id, []byte("child"), [][]byte{[]byte("key")})
	require.NoError(t, err)
	assert.NotEmpty(t, childProof)

	_, err = client.ReadProof(types.NewBlockIDFromNumber(5), [][]byte{[]byte("key")})
	assert.ErrorIs(t, err, blockchain.ErrUnknownBlock)
}

func Test_Client_ExecutionProof(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, Options{}, false)
	hash := importBlock(t, client, client.Info().GenesisHash, nil,
		testruntime.Set([]byte("key"), []byte("value")))
	id := types.NewBlockIDFromHash(hash)
	header, err := client.Header(id)
	require.NoError(t, err)

	result, proof, err := client.ExecutionProof(id, "Test_read", []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), result)

	checked, err := executor.CheckExecutionProof(newCodeExecutor(), header, "Test_read", []byte("key"), proof)
	require.NoError(t, err)
	assert.Equal(t, result, checked)

	// a truncated proof misses nodes of the state read
	_, err = executor.CheckExecutionProof(newCodeExecutor(), header, "Test_read", []byte("key"), proof[:1])
	assert.Error(t, err)
}

func Test_Client_KeyChanges(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, Options{}, true)
	chain := importChain(t, client, client.Info().GenesisHash, 3)
	last := types.NewBlockIDFromHash(chain[2])

	testCases := map[string]struct {
		first    uint64
		key      []byte
		expected []changestrie.BlockExtrinsic
	}{
		"from_genesis": {
			first:    0,
			key:      []byte("height"),
			expected: []changestrie.BlockExtrinsic{{Block: 3}, {Block: 2}, {Block: 1}},
		},
		"from_second_block": {
			first:    2,
			key:      []byte("height"),
			expected: []changestrie.BlockExtrinsic{{Block: 3}, {Block: 2}},
		},
		"unchanged_key": {
			first: 0,
			key:   []byte("genesis"),
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			changes, err := client.KeyChanges(testCase.first, last, testCase.key)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, changes)
		})
	}

	_, err := client.KeyChanges(5, last, []byte("height"))
	assert.ErrorIs(t, err, blockchain.ErrChangesTrieAccessFailed)
}

func Test_Client_KeyChangesProof(t *testing.T) {
	t.Parallel()

	client, backend := newTestClient(t, Options{CHTSize: testCHTSize}, true)
	chain := importChain(t, client, client.Info().GenesisHash, testCHTSize)
	bc := backend.Blockchain()
	key := []byte("height")

	changesTrieRoot := func(number uint64) (*common.Hash, error) {
		header, err := blockchain.HeaderByID(bc, types.NewBlockIDFromNumber(number))
		if err != nil || header == nil {
			return nil, err
		}
		root, ok := header.ChangesTrieRoot()
		if !ok {
			return nil, nil
		}
		return &root, nil
	}

	// the requester knows the headers from block 2 on
	proof, err := client.KeyChangesProof(chain[0], chain[2], chain[1], chain[3], key)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), proof.MaxBlock)

	root, err := changesTrieRoot(1)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, map[uint64]common.Hash{1: *root}, proof.Roots)

	chtRoot, err := cht.ComputeRoot(testCHTSize, 0, changesTrieRoot)
	require.NoError(t, err)
	err = cht.CheckProofOnDB(chtRoot, 1, proof.Roots[1], proof.RootsProof.DB())
	require.NoError(t, err)

	roots := rootsFunc(func(number uint64) (*common.Hash, error) {
		if root, ok := proof.Roots[number]; ok {
			return &root, nil
		}
		return changesTrieRoot(number)
	})
	r := changestrie.Range{
		Begin: 1,
		End:   changestrie.AnchorBlockID{Hash: chain[3], Number: 4},
		Max:   3,
	}
	changes, err := changestrie.KeyChangesProofCheck(roots, proof.Proof, r, key)
	require.NoError(t, err)
	assert.Equal(t, []changestrie.BlockExtrinsic{{Block: 3}, {Block: 2}, {Block: 1}}, changes)

	_, err = client.KeyChangesProof(chain[2], chain[0], chain[1], chain[3], key)
	assert.ErrorIs(t, err, blockchain.ErrChangesTrieAccessFailed)
}

func Test_Client_changesTriesNotSupported(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, Options{}, false)
	hash := importBlock(t, client, client.Info().GenesisHash, nil)

	_, err := client.KeyChanges(0, types.NewBlockIDFromHash(hash), []byte("key"))
	assert.ErrorIs(t, err, blockchain.ErrChangesTriesNotSupported)

	_, err = client.KeyChangesProof(hash, hash, hash, hash, []byte("key"))
	assert.ErrorIs(t, err, blockchain.ErrChangesTriesNotSupported)
}
