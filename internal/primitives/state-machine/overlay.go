// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"sort"

	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// OverlayedValue is a pending value. A nil Value means the key is deleted.
type OverlayedValue struct {
	Value []byte
	// Extrinsics holds the indices of the extrinsics which changed the
	// value, and is only filled when extrinsics are tracked.
	Extrinsics map[uint32]struct{}
}

func (v *OverlayedValue) clone() *OverlayedValue {
	cp := &OverlayedValue{Value: v.Value}
	if v.Extrinsics != nil {
		cp.Extrinsics = make(map[uint32]struct{}, len(v.Extrinsics))
		for index := range v.Extrinsics {
			cp.Extrinsics[index] = struct{}{}
		}
	}
	return cp
}

type overlayLayer struct {
	top      map[string]*OverlayedValue
	children map[string]map[string]*OverlayedValue
}

func newOverlayLayer() overlayLayer {
	return overlayLayer{
		top:      make(map[string]*OverlayedValue),
		children: make(map[string]map[string]*OverlayedValue),
	}
}

func (l overlayLayer) clone() overlayLayer {
	cp := newOverlayLayer()
	for key, value := range l.top {
		cp.top[key] = value.clone()
	}
	for child, values := range l.children {
		cpValues := make(map[string]*OverlayedValue, len(values))
		for key, value := range values {
			cpValues[key] = value.clone()
		}
		cp.children[child] = cpValues
	}
	return cp
}

func (l overlayLayer) isEmpty() bool {
	return len(l.top) == 0 && len(l.children) == 0
}

// OverlayedChanges holds the changes made on top of a state. Changes are
// first prospective, then committed or discarded as a whole.
type OverlayedChanges struct {
	prospective overlayLayer
	committed   overlayLayer

	trackExtrinsics bool
	extrinsicIndex  *uint32
}

// NewOverlayedChanges returns empty overlayed changes.
func NewOverlayedChanges() *OverlayedChanges {
	return &OverlayedChanges{
		prospective: newOverlayLayer(),
		committed:   newOverlayLayer(),
	}
}

// SetTrackExtrinsics enables recording, for each changed key, the indices
// of the extrinsics which changed it. It is needed to build changes tries.
func (o *OverlayedChanges) SetTrackExtrinsics(track bool) {
	o.trackExtrinsics = track
}

// IsTrackingExtrinsics returns true if extrinsic indices are recorded.
func (o *OverlayedChanges) IsTrackingExtrinsics() bool {
	return o.trackExtrinsics
}

// SetExtrinsicIndex sets the index of the extrinsic making the next changes.
func (o *OverlayedChanges) SetExtrinsicIndex(index uint32) {
	o.extrinsicIndex = &index
}

// ClearExtrinsicIndex marks next changes as made outside of any extrinsic.
func (o *OverlayedChanges) ClearExtrinsicIndex() {
	o.extrinsicIndex = nil
}

// Storage returns the pending value of key. The boolean is false when the
// key is unchanged, in which case the backend value applies.
func (o *OverlayedChanges) Storage(key []byte) (value []byte, ok bool) {
	if v, ok := o.prospective.top[string(key)]; ok {
		return v.Value, true
	}
	if v, ok := o.committed.top[string(key)]; ok {
		return v.Value, true
	}
	return nil, false
}

// ChildStorage returns the pending value of key in the child trie.
func (o *OverlayedChanges) ChildStorage(childKey, key []byte) (value []byte, ok bool) {
	if v, ok := o.prospective.children[string(childKey)][string(key)]; ok {
		return v.Value, true
	}
	if v, ok := o.committed.children[string(childKey)][string(key)]; ok {
		return v.Value, true
	}
	return nil, false
}

// SetStorage sets a prospective value of key. A nil value deletes the key.
func (o *OverlayedChanges) SetStorage(key, value []byte) {
	entry, ok := o.prospective.top[string(key)]
	if !ok {
		entry = o.fromCommitted(o.committed.top[string(key)])
		o.prospective.top[string(key)] = entry
	}
	entry.Value = common.CopyBytes(value)
	o.recordExtrinsic(entry)
}

// SetChildStorage sets a prospective value of key in the child trie.
func (o *OverlayedChanges) SetChildStorage(childKey, key, value []byte) {
	values, ok := o.prospective.children[string(childKey)]
	if !ok {
		values = make(map[string]*OverlayedValue)
		o.prospective.children[string(childKey)] = values
	}
	entry, ok := values[string(key)]
	if !ok {
		entry = o.fromCommitted(o.committed.children[string(childKey)][string(key)])
		values[string(key)] = entry
	}
	entry.Value = common.CopyBytes(value)
	o.recordExtrinsic(entry)
}

// fromCommitted starts a prospective entry carrying the extrinsics of the
// committed one, if any.
func (o *OverlayedChanges) fromCommitted(committed *OverlayedValue) *OverlayedValue {
	if committed == nil || !o.trackExtrinsics {
		return &OverlayedValue{}
	}
	entry := committed.clone()
	entry.Value = nil
	return entry
}

func (o *OverlayedChanges) recordExtrinsic(entry *OverlayedValue) {
	if !o.trackExtrinsics || o.extrinsicIndex == nil {
		return
	}
	if entry.Extrinsics == nil {
		entry.Extrinsics = make(map[uint32]struct{})
	}
	entry.Extrinsics[*o.extrinsicIndex] = struct{}{}
}

// CommitProspective moves all prospective changes to the committed layer.
func (o *OverlayedChanges) CommitProspective() {
	for key, value := range o.prospective.top {
		o.committed.top[key] = value
	}
	for child, values := range o.prospective.children {
		committed, ok := o.committed.children[child]
		if !ok {
			committed = make(map[string]*OverlayedValue, len(values))
			o.committed.children[child] = committed
		}
		for key, value := range values {
			committed[key] = value
		}
	}
	o.prospective = newOverlayLayer()
}

// DiscardProspective drops all prospective changes.
func (o *OverlayedChanges) DiscardProspective() {
	o.prospective = newOverlayLayer()
}

// IsEmpty returns true if no change is pending.
func (o *OverlayedChanges) IsEmpty() bool {
	return o.prospective.isEmpty() && o.committed.isEmpty()
}

// Clone returns a deep copy of the changes.
func (o *OverlayedChanges) Clone() *OverlayedChanges {
	cp := &OverlayedChanges{
		prospective:     o.prospective.clone(),
		committed:       o.committed.clone(),
		trackExtrinsics: o.trackExtrinsics,
	}
	if o.extrinsicIndex != nil {
		index := *o.extrinsicIndex
		cp.extrinsicIndex = &index
	}
	return cp
}

func (o *OverlayedChanges) mergedTop() map[string]*OverlayedValue {
	merged := make(map[string]*OverlayedValue, len(o.committed.top)+len(o.prospective.top))
	for key, value := range o.committed.top {
		merged[key] = value
	}
	for key, value := range o.prospective.top {
		merged[key] = value
	}
	return merged
}

// Changes returns all pending top and child trie changes, committed and
// prospective, ordered by key.
func (o *OverlayedChanges) Changes() (StorageCollection, ChildStorageCollection) {
	delta := collectionFrom(o.mergedTop())

	childKeys := make(map[string]struct{})
	for child := range o.committed.children {
		childKeys[child] = struct{}{}
	}
	for child := range o.prospective.children {
		childKeys[child] = struct{}{}
	}
	sortedChildKeys := make([]string, 0, len(childKeys))
	for child := range childKeys {
		sortedChildKeys = append(sortedChildKeys, child)
	}
	sort.Strings(sortedChildKeys)

	childDeltas := make(ChildStorageCollection, 0, len(sortedChildKeys))
	for _, child := range sortedChildKeys {
		merged := make(map[string]*OverlayedValue)
		for key, value := range o.committed.children[child] {
			merged[key] = value
		}
		for key, value := range o.prospective.children[child] {
			merged[key] = value
		}
		childDeltas = append(childDeltas, ChildStorageChanges{
			ChildKey: []byte(child),
			Changes:  collectionFrom(merged),
		})
	}
	return delta, childDeltas
}

func collectionFrom(values map[string]*OverlayedValue) StorageCollection {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	collection := make(StorageCollection, len(keys))
	for i, key := range keys {
		collection[i] = KeyValueOption{Key: []byte(key), Value: values[key].Value}
	}
	return collection
}

// ExtrinsicChanges returns the top trie keys changed by extrinsics, with
// the indices of the extrinsics which changed them. Changes made outside
// of extrinsics are not listed.
func (o *OverlayedChanges) ExtrinsicChanges() changestrie.Changes {
	changes := make(changestrie.Changes)
	for key, value := range o.mergedTop() {
		if len(value.Extrinsics) == 0 {
			continue
		}
		indices := make([]uint32, 0, len(value.Extrinsics))
		for index := range value.Extrinsics {
			indices = append(indices, index)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		changes[key] = indices
	}
	return changes
}
