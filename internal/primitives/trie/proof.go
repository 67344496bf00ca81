// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// StorageProof is a set of raw trie nodes proving one or more keys against
// a root. Nodes are deduplicated and kept sorted, so two proofs holding the
// same nodes are equal regardless of the order they were collected in.
type StorageProof [][]byte

// NewStorageProof returns a proof holding the unique nodes given.
func NewStorageProof(nodes [][]byte) StorageProof {
	db := NewProofDB()
	for _, node := range nodes {
		db.insert(node)
	}
	return db.Proof()
}

// Merge returns the union of the proofs.
func Merge(proofs ...StorageProof) StorageProof {
	db := NewProofDB()
	for _, proof := range proofs {
		for _, node := range proof {
			db.insert(node)
		}
	}
	return db.Proof()
}

// Len returns the number of nodes in the proof.
func (p StorageProof) Len() int { return len(p) }

// IsEmpty returns true if the proof holds no nodes.
func (p StorageProof) IsEmpty() bool { return len(p) == 0 }

// DB returns a node database over the proof nodes.
func (p StorageProof) DB() *ProofDB {
	db := NewProofDB()
	for _, node := range p {
		db.insert(node)
	}
	return db
}

// NodeHash returns the hash under which a trie node is referenced.
func NodeHash(node []byte) common.Hash {
	return common.Hash(crypto.Keccak256Hash(node))
}

// ProofDB is an in memory node store keyed by node hash. It is written to
// by trie proving and read from by proof verification.
type ProofDB struct {
	mutex sync.RWMutex
	nodes map[common.Hash][]byte
}

// NewProofDB returns an empty proof database.
func NewProofDB() *ProofDB {
	return &ProofDB{nodes: make(map[common.Hash][]byte)}
}

func (db *ProofDB) insert(node []byte) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.nodes[NodeHash(node)] = common.CopyBytes(node)
}

// Has implements ethdb.KeyValueReader.
func (db *ProofDB) Has(key []byte) (bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	_, ok := db.nodes[common.BytesToHash(key)]
	return ok, nil
}

// Get implements ethdb.KeyValueReader. A missing node is reported with a
// nil value, which go-ethereum's proof verification treats as absent.
func (db *ProofDB) Get(key []byte) ([]byte, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.nodes[common.BytesToHash(key)], nil
}

// Put implements ethdb.KeyValueWriter.
func (db *ProofDB) Put(key []byte, value []byte) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.nodes[common.BytesToHash(key)] = common.CopyBytes(value)
	return nil
}

// Delete implements ethdb.KeyValueWriter.
func (db *ProofDB) Delete(key []byte) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	delete(db.nodes, common.BytesToHash(key))
	return nil
}

// Contains returns true if the node with the given hash is in the database.
func (db *ProofDB) Contains(hash common.Hash) bool {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	_, ok := db.nodes[hash]
	return ok
}

// Len returns the number of nodes held.
func (db *ProofDB) Len() int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.nodes)
}

// Proof returns the nodes held as a storage proof.
func (db *ProofDB) Proof() StorageProof {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	proof := make(StorageProof, 0, len(db.nodes))
	for _, node := range db.nodes {
		proof = append(proof, node)
	}
	sort.Slice(proof, func(i, j int) bool {
		return bytes.Compare(proof[i], proof[j]) < 0
	})
	return proof
}
