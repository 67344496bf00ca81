// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/ChainSafe/chainstate/lib/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	ethtrie "github.com/ethereum/go-ethereum/trie"
)

// EmptyRoot is the root of a trie without entries.
var EmptyRoot = common.MustHexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Trie is an in memory Merkle Patricia trie. Keys are stored raw, so
// entries sharing a prefix share a path. Storing an empty value removes
// the key.
type Trie struct {
	inner *ethtrie.Trie
}

// NewEmptyTrie returns a trie with no entries.
func NewEmptyTrie() *Trie {
	return &Trie{
		inner: ethtrie.NewEmpty(ethtrie.NewDatabase(memorydb.New())),
	}
}

// Put inserts or replaces the value at key.
func (t *Trie) Put(key, value []byte) error {
	return t.inner.TryUpdate(key, value)
}

// Delete removes key from the trie.
func (t *Trie) Delete(key []byte) error {
	return t.inner.TryDelete(key)
}

// Get returns the value at key, or nil if the key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.inner.TryGet(key)
}

// Hash returns the root hash of the trie.
func (t *Trie) Hash() common.Hash {
	return common.Hash(t.inner.Hash())
}

// Prove returns the nodes proving the values, or absence, of all the keys.
func (t *Trie) Prove(keys ...[]byte) (StorageProof, error) {
	db := NewProofDB()
	for _, key := range keys {
		err := t.inner.Prove(key, 0, db)
		if err != nil {
			return nil, fmt.Errorf("proving key 0x%x: %w", key, err)
		}
	}
	return db.Proof(), nil
}

// KeyValue is a single trie entry.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// NewTrieFromEntries builds a trie holding the entries given.
func NewTrieFromEntries(entries []KeyValue) (*Trie, error) {
	t := NewEmptyTrie()
	for _, entry := range entries {
		err := t.Put(entry.Key, entry.Value)
		if err != nil {
			return nil, fmt.Errorf("inserting key 0x%x: %w", entry.Key, err)
		}
	}
	return t, nil
}

// TrieRoot returns the root of the trie holding the entries given.
func TrieRoot(entries []KeyValue) (common.Hash, error) {
	t, err := NewTrieFromEntries(entries)
	if err != nil {
		return common.Hash{}, err
	}
	return t.Hash(), nil
}

// ProveRead builds a trie from the entries and returns the proof of keys.
func ProveRead(entries []KeyValue, keys ...[]byte) (StorageProof, error) {
	t, err := NewTrieFromEntries(entries)
	if err != nil {
		return nil, err
	}
	return t.Prove(keys...)
}

// OrderedTrieRoot returns the root of the trie mapping the big endian
// uint32 index of each value to the value. It is used for extrinsics roots.
func OrderedTrieRoot(values [][]byte) common.Hash {
	t := NewEmptyTrie()
	for i, value := range values {
		key := make([]byte, 4)
		binary.BigEndian.PutUint32(key, uint32(i))
		// an in memory trie update cannot fail
		_ = t.Put(key, value)
	}
	return t.Hash()
}

// ReadProofCheckOne verifies the proof of a single key against root and
// returns the proven value, nil when the key is proven absent.
func ReadProofCheckOne(root common.Hash, proof StorageProof, key []byte) ([]byte, error) {
	return readProofCheck(root, proof.DB(), key)
}

// ReadProofCheck verifies the proof of all keys against root and returns
// the proven values keyed by string(key). Absent keys map to nil.
func ReadProofCheck(root common.Hash, proof StorageProof, keys ...[]byte) (map[string][]byte, error) {
	db := proof.DB()
	values := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := readProofCheck(root, db, key)
		if err != nil {
			return nil, err
		}
		values[string(key)] = value
	}
	return values, nil
}

// ReadProofCheckOnDB is ReadProofCheckOne over an existing node database,
// so that several checks can share the decoded proof.
func ReadProofCheckOnDB(root common.Hash, db *ProofDB, key []byte) ([]byte, error) {
	return readProofCheck(root, db, key)
}

func readProofCheck(root common.Hash, db *ProofDB, key []byte) ([]byte, error) {
	if root == EmptyRoot {
		return nil, nil
	}
	if db.Len() == 0 {
		return nil, fmt.Errorf("%w: root %s", ErrEmptyProof, root)
	}

	value, err := ethtrie.VerifyProof(ethcommon.Hash(root), key, db)
	if err != nil {
		return nil, fmt.Errorf("%w: key 0x%x: %s", ErrInvalidProof, key, err)
	}
	return value, nil
}
