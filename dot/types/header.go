// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"fmt"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Header is a block header. It is immutable once stored.
type Header struct {
	ParentHash     common.Hash `json:"parentHash"`
	Number         uint64      `json:"number"`
	StateRoot      common.Hash `json:"stateRoot"`
	ExtrinsicsRoot common.Hash `json:"extrinsicsRoot"`
	Digest         Digest      `json:"digest"`
}

// NewHeader creates a new block header.
func NewHeader(parentHash, stateRoot, extrinsicsRoot common.Hash, number uint64, digest Digest) *Header {
	return &Header{
		ParentHash:     parentHash,
		Number:         number,
		StateRoot:      stateRoot,
		ExtrinsicsRoot: extrinsicsRoot,
		Digest:         digest,
	}
}

// Encode implements scale.Encodeable.
func (bh Header) Encode(encoder scale.Encoder) error {
	err := encodeHash(encoder, bh.ParentHash)
	if err != nil {
		return err
	}
	err = encodeCompact(encoder, bh.Number)
	if err != nil {
		return err
	}
	err = encodeHash(encoder, bh.StateRoot)
	if err != nil {
		return err
	}
	err = encodeHash(encoder, bh.ExtrinsicsRoot)
	if err != nil {
		return err
	}
	return bh.Digest.Encode(encoder)
}

// Decode implements scale.Decodeable.
func (bh *Header) Decode(decoder scale.Decoder) (err error) {
	bh.ParentHash, err = decodeHash(decoder)
	if err != nil {
		return fmt.Errorf("decoding parent hash: %w", err)
	}
	bh.Number, err = decodeCompact(decoder)
	if err != nil {
		return fmt.Errorf("decoding number: %w", err)
	}
	bh.StateRoot, err = decodeHash(decoder)
	if err != nil {
		return fmt.Errorf("decoding state root: %w", err)
	}
	bh.ExtrinsicsRoot, err = decodeHash(decoder)
	if err != nil {
		return fmt.Errorf("decoding extrinsics root: %w", err)
	}
	return bh.Digest.Decode(decoder)
}

// Bytes returns the SCALE encoding of the header.
func (bh *Header) Bytes() []byte {
	enc, err := Encode(*bh)
	if err != nil {
		// encoding only writes to an in memory buffer
		panic(err)
	}
	return enc
}

// Hash returns the blake2b hash of the SCALE encoded header.
func (bh *Header) Hash() common.Hash {
	return common.MustBlake2bHash(bh.Bytes())
}

// ChangesTrieRoot returns the changes trie root from the header digest.
func (bh *Header) ChangesTrieRoot() (common.Hash, bool) {
	return bh.Digest.ChangesTrieRoot()
}

// DeepCopy returns a deep copy of the header.
func (bh *Header) DeepCopy() *Header {
	cp := *bh
	if bh.Digest != nil {
		cp.Digest = make(Digest, len(bh.Digest))
		copy(cp.Digest, bh.Digest)
	}
	return &cp
}

// String returns the formatted header as a string
func (bh *Header) String() string {
	return fmt.Sprintf("ParentHash=%s Number=%d StateRoot=%s ExtrinsicsRoot=%s Digest=%v Hash=%s",
		bh.ParentHash, bh.Number, bh.StateRoot, bh.ExtrinsicsRoot, bh.Digest, bh.Hash())
}

// DecodeHeader decodes a SCALE encoded header.
func DecodeHeader(enc []byte) (*Header, error) {
	header := new(Header)
	err := Decode(enc, header)
	if err != nil {
		return nil, err
	}
	return header, nil
}
