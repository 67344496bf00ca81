// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ErrChildStorageKey is returned when a child trie root key is written to
// directly through the top trie.
var ErrChildStorageKey = errors.New("child storage keys cannot be written directly")

// ChangesTrieTransaction is the changes trie built for a block.
type ChangesTrieTransaction struct {
	Root    common.Hash
	Entries []trie.KeyValue
}

// Ext are the externalities a runtime call runs against: reads go through
// the overlayed changes to the backend, writes go to the overlay.
type Ext struct {
	overlay *OverlayedChanges
	backend Backend
}

// NewExt returns externalities over the overlay and backend.
func NewExt(overlay *OverlayedChanges, backend Backend) *Ext {
	return &Ext{overlay: overlay, backend: backend}
}

// Overlay returns the overlayed changes written to.
func (e *Ext) Overlay() *OverlayedChanges { return e.overlay }

// Backend returns the state read from.
func (e *Ext) Backend() Backend { return e.backend }

// Storage returns the value of key, or nil.
func (e *Ext) Storage(key []byte) ([]byte, error) {
	if value, ok := e.overlay.Storage(key); ok {
		return common.CopyBytes(value), nil
	}
	return e.backend.Storage(key)
}

// ChildStorage returns the value of key in the child trie, or nil.
func (e *Ext) ChildStorage(childKey, key []byte) ([]byte, error) {
	if value, ok := e.overlay.ChildStorage(childKey, key); ok {
		return common.CopyBytes(value), nil
	}
	return e.backend.ChildStorage(childKey, key)
}

// SetStorage sets key to value. A nil value deletes the key.
func (e *Ext) SetStorage(key, value []byte) error {
	if common.IsChildStorageKey(key) {
		return fmt.Errorf("%w: 0x%x", ErrChildStorageKey, key)
	}
	e.overlay.SetStorage(key, value)
	return nil
}

// ClearStorage deletes key.
func (e *Ext) ClearStorage(key []byte) error {
	return e.SetStorage(key, nil)
}

// ClearPrefix deletes all keys starting with prefix, pending or stored.
func (e *Ext) ClearPrefix(prefix []byte) error {
	if common.IsChildStorageKey(prefix) {
		return fmt.Errorf("%w: 0x%x", ErrChildStorageKey, prefix)
	}

	keys, err := e.backend.KeysWithPrefix(prefix)
	if err != nil {
		return fmt.Errorf("listing keys with prefix 0x%x: %w", prefix, err)
	}
	for key := range e.overlay.mergedTop() {
		if bytes.HasPrefix([]byte(key), prefix) {
			keys = append(keys, []byte(key))
		}
	}
	for _, key := range keys {
		e.overlay.SetStorage(key, nil)
	}
	return nil
}

// SetChildStorage sets key to value in the child trie.
func (e *Ext) SetChildStorage(childKey, key, value []byte) {
	e.overlay.SetChildStorage(childKey, key, value)
}

// ClearChildStorage deletes key from the child trie.
func (e *Ext) ClearChildStorage(childKey, key []byte) {
	e.overlay.SetChildStorage(childKey, key, nil)
}

// SetExtrinsicIndex sets the index of the extrinsic being applied.
func (e *Ext) SetExtrinsicIndex(index uint32) {
	e.overlay.SetExtrinsicIndex(index)
}

// ClearExtrinsicIndex marks next changes as made outside of extrinsics.
func (e *Ext) ClearExtrinsicIndex() {
	e.overlay.ClearExtrinsicIndex()
}

// StorageRoot returns the state root with all pending changes applied.
func (e *Ext) StorageRoot() (common.Hash, error) {
	root, _, err := e.StorageTransaction()
	return root, err
}

// StorageTransaction returns the state root with all pending changes
// applied, and the transaction applying them to the backend.
func (e *Ext) StorageTransaction() (common.Hash, Transaction, error) {
	delta, childDeltas := e.overlay.Changes()
	root, transaction, err := e.backend.StorageRoot(delta, childDeltas)
	if err != nil {
		return common.Hash{}, Transaction{}, fmt.Errorf("computing storage root: %w", err)
	}
	return root, transaction, nil
}

// ChangesTrieConfig returns the changes trie configuration stored in the
// state, or nil if changes tries are disabled.
func (e *Ext) ChangesTrieConfig() (*types.ChangesTrieConfiguration, error) {
	encoded, err := e.Storage(common.ChangesTrieConfigKey)
	if err != nil {
		return nil, fmt.Errorf("reading changes trie configuration: %w", err)
	}
	if encoded == nil {
		return nil, nil
	}
	config := new(types.ChangesTrieConfiguration)
	err = types.Decode(encoded, config)
	if err != nil {
		return nil, fmt.Errorf("decoding changes trie configuration: %w", err)
	}
	return config, nil
}

// ChangesTrie returns the changes trie of the pending changes, or nil if
// changes tries are disabled or extrinsics are not tracked.
func (e *Ext) ChangesTrie() (*ChangesTrieTransaction, error) {
	if !e.overlay.IsTrackingExtrinsics() {
		return nil, nil
	}
	config, err := e.ChangesTrieConfig()
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, nil
	}

	root, entries, err := changestrie.BuildChangesTrie(e.overlay.ExtrinsicChanges())
	if err != nil {
		return nil, fmt.Errorf("building changes trie: %w", err)
	}
	return &ChangesTrieTransaction{Root: root, Entries: entries}, nil
}

// ChangesTrieRoot returns the root of ChangesTrie, or nil.
func (e *Ext) ChangesTrieRoot() (*common.Hash, error) {
	transaction, err := e.ChangesTrie()
	if err != nil || transaction == nil {
		return nil, err
	}
	return &transaction.Root, nil
}

// KeysWithPrefix returns the keys starting with prefix with pending
// changes applied, in ascending order.
func (e *Ext) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	stored, err := e.backend.KeysWithPrefix(prefix)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(stored))
	for _, key := range stored {
		keys[string(key)] = struct{}{}
	}
	for key, value := range e.overlay.mergedTop() {
		if !bytes.HasPrefix([]byte(key), prefix) {
			continue
		}
		if value.Value == nil {
			delete(keys, key)
			continue
		}
		keys[key] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)
	result := make([][]byte, len(sorted))
	for i, key := range sorted {
		result[i] = []byte(key)
	}
	return result, nil
}

// StorageChanges returns all pending changes as a state transaction on the
// backend and, when enabled, the changes trie.
func (e *Ext) StorageChanges() (StorageChanges, error) {
	root, transaction, err := e.StorageTransaction()
	if err != nil {
		return StorageChanges{}, err
	}
	changesTrie, err := e.ChangesTrie()
	if err != nil {
		return StorageChanges{}, err
	}
	return StorageChanges{
		StorageRoot: root,
		Transaction: transaction,
		ChangesTrie: changesTrie,
	}, nil
}
