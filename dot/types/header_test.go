// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"testing"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeader(number uint64) *Header {
	return NewHeader(common.Hash{0xaa}, common.Hash{0xbb}, common.Hash{0xcc}, number, Digest{
		PreRuntimeDigest{ConsensusEngineID: BabeEngineID, Data: []byte{1, 2}},
		ChangesTrieRootDigest{Hash: common.Hash{0xdd}},
		ConsensusDigest{ConsensusEngineID: GrandpaEngineID, Data: []byte{3}},
		OtherDigest{4, 5},
		SealDigest{ConsensusEngineID: BabeEngineID, Data: []byte{6}},
	})
}

func Test_Header_encodeDecode(t *testing.T) {
	t.Parallel()

	header := newTestHeader(1 << 40)

	decoded, err := DecodeHeader(header.Bytes())
	require.NoError(t, err)

	assert.Equal(t, header, decoded)
	assert.Equal(t, header.Hash(), decoded.Hash())
}

func Test_Header_Hash(t *testing.T) {
	t.Parallel()

	a := newTestHeader(1)
	b := newTestHeader(2)
	assert.NotEqual(t, a.Hash(), b.Hash())

	cp := a.DeepCopy()
	assert.Equal(t, a.Hash(), cp.Hash())
	cp.StateRoot = common.Hash{1}
	assert.NotEqual(t, a.Hash(), cp.Hash())
}

func Test_Header_ChangesTrieRoot(t *testing.T) {
	t.Parallel()

	root, ok := newTestHeader(1).ChangesTrieRoot()
	assert.True(t, ok)
	assert.Equal(t, common.Hash{0xdd}, root)

	_, ok = NewHeader(common.Hash{}, common.Hash{}, common.Hash{}, 0, nil).ChangesTrieRoot()
	assert.False(t, ok)
}

func Test_DecodeHeader_errors(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		enc        []byte
		errWrapped error
		errMessage string
	}{
		"unknown_digest_type": {
			enc: append(
				NewHeader(common.Hash{}, common.Hash{}, common.Hash{}, 0, nil).Bytes()[:32+1+64],
				4<<2, 9),
			errWrapped: ErrUnknownDigestItemType,
		},
		"trailing_bytes": {
			enc:        append(NewHeader(common.Hash{}, common.Hash{}, common.Hash{}, 0, nil).Bytes(), 0),
			errMessage: "1 trailing bytes after decoding *types.Header",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeHeader(testCase.enc)
			require.Error(t, err)
			if testCase.errWrapped != nil {
				assert.ErrorIs(t, err, testCase.errWrapped)
			}
			if testCase.errMessage != "" {
				assert.EqualError(t, err, testCase.errMessage)
			}
		})
	}
}
