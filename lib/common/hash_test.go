// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToHash(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		in       string
		expected Hash
		errMsg   string
	}{
		"valid": {
			in:       "0x8550326cee1e1b768a254095b412e0db58523c2b5df9b7d2540b4513d475ce7f",
			expected: Hash{0x85, 0x50, 0x32, 0x6c, 0xee, 0x1e, 0x1b, 0x76, 0x8a, 0x25, 0x40, 0x95, 0xb4, 0x12, 0xe0, 0xdb, 0x58, 0x52, 0x3c, 0x2b, 0x5d, 0xf9, 0xb7, 0xd2, 0x54, 0x0b, 0x45, 0x13, 0xd4, 0x75, 0xce, 0x7f}, //nolint:lll
		},
		"no prefix": {
			in:     "8550",
			errMsg: "could not byteify non 0x prefixed string",
		},
		"too short": {
			in:     "0x8550",
			errMsg: "invalid hash length: expected 32 bytes, got 2",
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := HexToHash(testCase.in)
			if testCase.errMsg != "" {
				require.EqualError(t, err, testCase.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, h)
		})
	}
}

func TestHash_JSON(t *testing.T) {
	t.Parallel()

	h := MustBlake2bHash([]byte("chainstate"))

	encoded, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"`+h.String()+`"`, string(encoded))

	var decoded Hash
	err = json.Unmarshal(encoded, &decoded)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
}

func TestHash_Short(t *testing.T) {
	t.Parallel()

	h := Hash{1, 2, 3, 4}
	h[31] = 0xff
	assert.Equal(t, "0x01020304...000000ff", h.Short())
}

func TestBytesToHash_cropsFromTheLeft(t *testing.T) {
	t.Parallel()

	in := make([]byte, 33)
	in[0] = 0xaa
	in[32] = 0x01

	h := BytesToHash(in)
	assert.Equal(t, byte(0x01), h[31])
	assert.Equal(t, byte(0x00), h[0])
}

func TestChildStorageKey(t *testing.T) {
	t.Parallel()

	key := ChildStorageKey([]byte("alice"))
	assert.Equal(t, []byte(":child_storage:default:alice"), key)
	assert.True(t, IsChildStorageKey(key))
	assert.False(t, IsChildStorageKey(CodeKey))
}
