// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"bytes"
	"testing"

	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ProvingBackend_roundTrip(t *testing.T) {
	t.Parallel()

	backend := newTestBackend(t)
	proving := NewProvingBackend(backend)

	value, err := proving.Storage([]byte("alpha"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	_, err = proving.Storage([]byte("missing"))
	require.NoError(t, err)
	_, err = proving.ChildStorage([]byte("child"), []byte("inner"))
	require.NoError(t, err)

	proof, err := proving.Proof()
	require.NoError(t, err)

	checker := NewProofCheckBackend(backend.Root(), proof)

	value, err = checker.Storage([]byte("alpha"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)

	value, err = checker.Storage([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = checker.ChildStorage([]byte("child"), []byte("inner"))
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, value)
}

func Test_ProofCheckBackend_unsupported(t *testing.T) {
	t.Parallel()

	checker := NewProofCheckBackend(trie.EmptyRoot, nil)

	value, err := checker.Storage([]byte("any"))
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = checker.KeysWithPrefix(nil)
	assert.ErrorIs(t, err, ErrUnsupportedOnProofBackend)

	_, _, err = checker.StorageRoot(nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedOnProofBackend)

	_, ok := checker.TryIntoTrieBackend()
	assert.False(t, ok)
}

func Test_ProofCheckBackend_uncoveredRead(t *testing.T) {
	t.Parallel()

	// values are large enough for trie nodes to be referenced by hash
	s := storage.NewStorage()
	s.Set([]byte("alpha"), bytes.Repeat([]byte{1}, 64))
	s.Set([]byte("beta"), bytes.Repeat([]byte{2}, 64))
	backend := NewInMemoryBackend(s)

	proof, err := backend.ProveRead([]byte("beta"))
	require.NoError(t, err)

	checker := NewProofCheckBackend(backend.Root(), proof)
	_, err = checker.Storage([]byte("alpha"))
	assert.ErrorIs(t, err, trie.ErrInvalidProof)
}
