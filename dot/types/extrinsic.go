// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"fmt"

	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Extrinsic is an opaque SCALE encoded extrinsic.
type Extrinsic []byte

// String returns the hex encoding of the extrinsic
func (e Extrinsic) String() string {
	return common.BytesToHex(e)
}

// Hash returns the blake2b hash of the extrinsic
func (e Extrinsic) Hash() common.Hash {
	return common.MustBlake2bHash(e)
}

// Body is the ordered list of extrinsics of a block.
type Body []Extrinsic

// Encode implements scale.Encodeable.
func (b Body) Encode(encoder scale.Encoder) error {
	err := encodeCompact(encoder, uint64(len(b)))
	if err != nil {
		return err
	}
	for _, ext := range b {
		err = encodeBytes(encoder, ext)
		if err != nil {
			return err
		}
	}
	return nil
}

// Decode implements scale.Decodeable.
func (b *Body) Decode(decoder scale.Decoder) error {
	length, err := decodeCompact(decoder)
	if err != nil {
		return err
	}
	body := make(Body, 0, length)
	for i := uint64(0); i < length; i++ {
		ext, err := decodeBytes(decoder)
		if err != nil {
			return fmt.Errorf("decoding extrinsic %d: %w", i, err)
		}
		body = append(body, ext)
	}
	*b = body
	return nil
}

// ExtrinsicsRoot returns the ordered trie root of the extrinsics.
func (b Body) ExtrinsicsRoot() common.Hash {
	values := make([][]byte, len(b))
	for i, ext := range b {
		values[i] = ext
	}
	return trie.OrderedTrieRoot(values)
}
