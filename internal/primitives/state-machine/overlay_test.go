// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package statemachine

import (
	"testing"

	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/stretchr/testify/assert"
)

func Test_OverlayedChanges_layers(t *testing.T) {
	t.Parallel()

	overlay := NewOverlayedChanges()
	assert.True(t, overlay.IsEmpty())

	overlay.SetStorage([]byte("key"), []byte{1})
	value, ok := overlay.Storage([]byte("key"))
	assert.True(t, ok)
	assert.Equal(t, []byte{1}, value)

	overlay.CommitProspective()
	overlay.SetStorage([]byte("key"), []byte{2})
	value, _ = overlay.Storage([]byte("key"))
	assert.Equal(t, []byte{2}, value)

	overlay.DiscardProspective()
	value, _ = overlay.Storage([]byte("key"))
	assert.Equal(t, []byte{1}, value)

	overlay.SetStorage([]byte("key"), nil)
	value, ok = overlay.Storage([]byte("key"))
	assert.True(t, ok)
	assert.Nil(t, value)

	_, ok = overlay.Storage([]byte("other"))
	assert.False(t, ok)
}

func Test_OverlayedChanges_Changes(t *testing.T) {
	t.Parallel()

	overlay := NewOverlayedChanges()
	overlay.SetStorage([]byte("b"), []byte{1})
	overlay.CommitProspective()
	overlay.SetStorage([]byte("a"), nil)
	overlay.SetChildStorage([]byte("child"), []byte("x"), []byte{2})

	delta, childDeltas := overlay.Changes()

	assert.Equal(t, StorageCollection{
		{Key: []byte("a")},
		{Key: []byte("b"), Value: []byte{1}},
	}, delta)
	assert.Equal(t, ChildStorageCollection{{
		ChildKey: []byte("child"),
		Changes:  StorageCollection{{Key: []byte("x"), Value: []byte{2}}},
	}}, childDeltas)
}

func Test_OverlayedChanges_ExtrinsicChanges(t *testing.T) {
	t.Parallel()

	overlay := NewOverlayedChanges()
	overlay.SetTrackExtrinsics(true)

	// made outside of extrinsics
	overlay.SetStorage([]byte("init"), []byte{0})

	overlay.SetExtrinsicIndex(0)
	overlay.SetStorage([]byte("a"), []byte{1})
	overlay.CommitProspective()

	overlay.SetExtrinsicIndex(2)
	overlay.SetStorage([]byte("a"), []byte{2})
	overlay.SetStorage([]byte("b"), []byte{2})
	overlay.CommitProspective()

	overlay.SetExtrinsicIndex(3)
	overlay.SetStorage([]byte("c"), []byte{3})
	overlay.DiscardProspective()

	overlay.ClearExtrinsicIndex()
	overlay.SetStorage([]byte("b"), []byte{4})

	expected := changestrie.Changes{
		"a": {0, 2},
		"b": {2},
	}
	assert.Equal(t, expected, overlay.ExtrinsicChanges())

	untracked := NewOverlayedChanges()
	untracked.SetExtrinsicIndex(0)
	untracked.SetStorage([]byte("a"), []byte{1})
	assert.Empty(t, untracked.ExtrinsicChanges())
}

func Test_OverlayedChanges_Clone(t *testing.T) {
	t.Parallel()

	overlay := NewOverlayedChanges()
	overlay.SetStorage([]byte("a"), []byte{1})

	clone := overlay.Clone()
	clone.SetStorage([]byte("a"), []byte{2})
	clone.CommitProspective()

	value, _ := overlay.Storage([]byte("a"))
	assert.Equal(t, []byte{1}, value)
	value, _ = clone.Storage([]byte("a"))
	assert.Equal(t, []byte{2}, value)
}
