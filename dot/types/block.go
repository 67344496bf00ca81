// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Block defines a state block
type Block struct {
	Header Header
	Body   Body
}

// NewBlock returns a new Block
func NewBlock(header Header, body Body) *Block {
	return &Block{
		Header: header,
		Body:   body,
	}
}

// Encode implements scale.Encodeable.
func (b Block) Encode(encoder scale.Encoder) error {
	err := b.Header.Encode(encoder)
	if err != nil {
		return err
	}
	return b.Body.Encode(encoder)
}

// Decode implements scale.Decodeable.
func (b *Block) Decode(decoder scale.Decoder) error {
	err := b.Header.Decode(decoder)
	if err != nil {
		return err
	}
	return b.Body.Decode(decoder)
}
