// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"fmt"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ProofCheckBackend is a state made of a storage proof. Reads are checked
// against the state root, and reads the proof does not cover fail.
type ProofCheckBackend struct {
	root common.Hash
	db   *trie.ProofDB
}

var _ Backend = (*ProofCheckBackend)(nil)

// NewProofCheckBackend returns a state reading from the proof against root.
func NewProofCheckBackend(root common.Hash, proof trie.StorageProof) *ProofCheckBackend {
	return &ProofCheckBackend{root: root, db: proof.DB()}
}

// Storage implements Backend.
func (p *ProofCheckBackend) Storage(key []byte) ([]byte, error) {
	return trie.ReadProofCheckOnDB(p.root, p.db, key)
}

// ChildStorage implements Backend.
func (p *ProofCheckBackend) ChildStorage(childKey, key []byte) ([]byte, error) {
	encodedRoot, err := trie.ReadProofCheckOnDB(p.root, p.db, common.ChildStorageKey(childKey))
	if err != nil {
		return nil, fmt.Errorf("reading child trie root: %w", err)
	}
	if encodedRoot == nil {
		return nil, nil
	}
	return trie.ReadProofCheckOnDB(common.BytesToHash(encodedRoot), p.db, key)
}

// KeysWithPrefix implements Backend and is not supported.
func (*ProofCheckBackend) KeysWithPrefix([]byte) ([][]byte, error) {
	return nil, fmt.Errorf("%w: enumerating keys", ErrUnsupportedOnProofBackend)
}

// StorageRoot implements Backend and is not supported.
func (*ProofCheckBackend) StorageRoot(StorageCollection, ChildStorageCollection) (
	common.Hash, Transaction, error) {
	return common.Hash{}, Transaction{}, fmt.Errorf("%w: computing storage root", ErrUnsupportedOnProofBackend)
}

// TryIntoTrieBackend implements Backend.
func (*ProofCheckBackend) TryIntoTrieBackend() (TrieBackend, bool) {
	return nil, false
}
