// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ProvingBackend is a trie backend recording the keys read through it, so
// that a proof of all the reads can be produced afterwards.
type ProvingBackend struct {
	backend TrieBackend

	mutex     sync.Mutex
	topKeys   map[string]struct{}
	childKeys map[string]map[string]struct{}
}

var _ Backend = (*ProvingBackend)(nil)

// NewProvingBackend returns a recording backend over backend.
func NewProvingBackend(backend TrieBackend) *ProvingBackend {
	return &ProvingBackend{
		backend:   backend,
		topKeys:   make(map[string]struct{}),
		childKeys: make(map[string]map[string]struct{}),
	}
}

// Storage implements Backend.
func (p *ProvingBackend) Storage(key []byte) ([]byte, error) {
	p.mutex.Lock()
	p.topKeys[string(key)] = struct{}{}
	p.mutex.Unlock()
	return p.backend.Storage(key)
}

// ChildStorage implements Backend.
func (p *ProvingBackend) ChildStorage(childKey, key []byte) ([]byte, error) {
	p.mutex.Lock()
	keys, ok := p.childKeys[string(childKey)]
	if !ok {
		keys = make(map[string]struct{})
		p.childKeys[string(childKey)] = keys
	}
	keys[string(key)] = struct{}{}
	p.mutex.Unlock()
	return p.backend.ChildStorage(childKey, key)
}

// KeysWithPrefix implements Backend. Enumerations are not recorded.
func (p *ProvingBackend) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	return p.backend.KeysWithPrefix(prefix)
}

// StorageRoot implements Backend.
func (p *ProvingBackend) StorageRoot(delta StorageCollection, childDeltas ChildStorageCollection) (
	common.Hash, Transaction, error) {
	return p.backend.StorageRoot(delta, childDeltas)
}

// TryIntoTrieBackend implements Backend.
func (p *ProvingBackend) TryIntoTrieBackend() (TrieBackend, bool) {
	return p.backend, true
}

// Proof returns the proof of all the reads made so far.
func (p *ProvingBackend) Proof() (trie.StorageProof, error) {
	p.mutex.Lock()
	topKeys := sortedKeys(p.topKeys)
	childKeys := make(map[string][][]byte, len(p.childKeys))
	for child, keys := range p.childKeys {
		childKeys[child] = sortedKeys(keys)
	}
	p.mutex.Unlock()

	proof, err := p.backend.ProveRead(topKeys...)
	if err != nil {
		return nil, fmt.Errorf("proving top trie reads: %w", err)
	}

	proofs := []trie.StorageProof{proof}
	for child, keys := range childKeys {
		childProof, err := p.backend.ProveChildRead([]byte(child), keys...)
		if err != nil {
			return nil, fmt.Errorf("proving child trie %s reads: %w", child, err)
		}
		proofs = append(proofs, childProof)
	}
	return trie.Merge(proofs...), nil
}

func sortedKeys(set map[string]struct{}) [][]byte {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := make([][]byte, len(keys))
	for i, key := range keys {
		result[i] = []byte(key)
	}
	return result
}
