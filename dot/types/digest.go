// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// ErrUnknownDigestItemType is returned when decoding a digest item with an
// unknown type byte.
var ErrUnknownDigestItemType = errors.New("unknown digest item type")

// ConsensusEngineID is a 4-character identifier of the consensus engine that produced the digest.
type ConsensusEngineID [4]byte

// NewConsensusEngineID casts a byte array to ConsensusEngineID
// if the input is longer than 4 bytes, it takes the first 4 bytes
func NewConsensusEngineID(in []byte) (res ConsensusEngineID) {
	copy(res[:], in)
	return res
}

// ToBytes turns ConsensusEngineID to a byte array
func (h ConsensusEngineID) ToBytes() []byte {
	b := [4]byte(h)
	return b[:]
}

// BabeEngineID is the hard-coded babe ID
var BabeEngineID = ConsensusEngineID{'B', 'A', 'B', 'E'}

// GrandpaEngineID is the hard-coded grandpa ID
var GrandpaEngineID = ConsensusEngineID{'F', 'R', 'N', 'K'}

// DigestItemType is the SCALE index of a digest item.
type DigestItemType byte

const (
	// OtherDigestType is the byte representation of OtherDigest
	OtherDigestType DigestItemType = 0
	// ChangesTrieRootDigestType is the byte representation of ChangesTrieRootDigest
	ChangesTrieRootDigestType DigestItemType = 2
	// ConsensusDigestType is the byte representation of ConsensusDigest
	ConsensusDigestType DigestItemType = 4
	// SealDigestType is the byte representation of SealDigest
	SealDigestType DigestItemType = 5
	// PreRuntimeDigestType is the byte representation of PreRuntimeDigest
	PreRuntimeDigestType DigestItemType = 6
)

// DigestItem can be of one of five types of digest: OtherDigest, ChangesTrieRootDigest,
// PreRuntimeDigest, ConsensusDigest, or SealDigest.
type DigestItem interface {
	String() string
	Type() DigestItemType
	// encodePayload encodes the item without its type byte.
	encodePayload(encoder scale.Encoder) error
}

// ChangesTrieRootDigest contains the root of the changes trie at a given block, if the runtime supports it.
type ChangesTrieRootDigest struct {
	Hash common.Hash
}

// String returns the digest as a string
func (d ChangesTrieRootDigest) String() string {
	return fmt.Sprintf("ChangesTrieRootDigest Hash=%s", d.Hash)
}

// Type returns the type
func (ChangesTrieRootDigest) Type() DigestItemType { return ChangesTrieRootDigestType }

func (d ChangesTrieRootDigest) encodePayload(encoder scale.Encoder) error {
	return encodeHash(encoder, d.Hash)
}

// PreRuntimeDigest contains messages from the consensus engine to the runtime.
type PreRuntimeDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// String returns the digest as a string
func (d PreRuntimeDigest) String() string {
	return fmt.Sprintf("PreRuntimeDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Type returns the type
func (PreRuntimeDigest) Type() DigestItemType { return PreRuntimeDigestType }

func (d PreRuntimeDigest) encodePayload(encoder scale.Encoder) error {
	return encodeEngineMessage(encoder, d.ConsensusEngineID, d.Data)
}

// ConsensusDigest contains messages from the runtime to the consensus engine.
type ConsensusDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// String returns the digest as a string
func (d ConsensusDigest) String() string {
	return fmt.Sprintf("ConsensusDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Type returns the type
func (ConsensusDigest) Type() DigestItemType { return ConsensusDigestType }

func (d ConsensusDigest) encodePayload(encoder scale.Encoder) error {
	return encodeEngineMessage(encoder, d.ConsensusEngineID, d.Data)
}

// SealDigest contains the seal or signature. This is only used by native code.
type SealDigest struct {
	ConsensusEngineID ConsensusEngineID
	Data              []byte
}

// String returns the digest as a string
func (d SealDigest) String() string {
	return fmt.Sprintf("SealDigest ConsensusEngineID=%s Data=0x%x", d.ConsensusEngineID.ToBytes(), d.Data)
}

// Type returns the type
func (SealDigest) Type() DigestItemType { return SealDigestType }

func (d SealDigest) encodePayload(encoder scale.Encoder) error {
	return encodeEngineMessage(encoder, d.ConsensusEngineID, d.Data)
}

// OtherDigest is an opaque digest item.
type OtherDigest []byte

// String returns the digest as a string
func (d OtherDigest) String() string {
	return fmt.Sprintf("OtherDigest Data=0x%x", []byte(d))
}

// Type returns the type
func (OtherDigest) Type() DigestItemType { return OtherDigestType }

func (d OtherDigest) encodePayload(encoder scale.Encoder) error {
	return encodeBytes(encoder, d)
}

func encodeEngineMessage(encoder scale.Encoder, id ConsensusEngineID, data []byte) error {
	err := encoder.Write(id[:])
	if err != nil {
		return err
	}
	return encodeBytes(encoder, data)
}

func decodeEngineMessage(decoder scale.Decoder) (id ConsensusEngineID, data []byte, err error) {
	err = decoder.Read(id[:])
	if err != nil {
		return id, nil, err
	}
	data, err = decodeBytes(decoder)
	return id, data, err
}

// Digest represents the block digest. It consists of digest items.
type Digest []DigestItem

// Encode implements scale.Encodeable.
func (d Digest) Encode(encoder scale.Encoder) error {
	err := encodeCompact(encoder, uint64(len(d)))
	if err != nil {
		return err
	}

	for i, item := range d {
		err = encoder.PushByte(byte(item.Type()))
		if err != nil {
			return err
		}
		err = item.encodePayload(encoder)
		if err != nil {
			return fmt.Errorf("encoding digest item %d: %w", i, err)
		}
	}
	return nil
}

// Decode implements scale.Decodeable.
func (d *Digest) Decode(decoder scale.Decoder) error {
	length, err := decodeCompact(decoder)
	if err != nil {
		return fmt.Errorf("could not decode length of digest items: %w", err)
	}

	digest := make(Digest, 0, length)
	for i := uint64(0); i < length; i++ {
		item, err := decodeDigestItem(decoder)
		if err != nil {
			return fmt.Errorf("could not decode digest item %d: %w", i, err)
		}
		digest = append(digest, item)
	}
	*d = digest
	return nil
}

func decodeDigestItem(decoder scale.Decoder) (DigestItem, error) {
	typ, err := decoder.ReadOneByte()
	if err != nil {
		return nil, err
	}

	switch DigestItemType(typ) {
	case ChangesTrieRootDigestType:
		hash, err := decodeHash(decoder)
		return ChangesTrieRootDigest{Hash: hash}, err
	case PreRuntimeDigestType:
		id, data, err := decodeEngineMessage(decoder)
		return PreRuntimeDigest{ConsensusEngineID: id, Data: data}, err
	case ConsensusDigestType:
		id, data, err := decodeEngineMessage(decoder)
		return ConsensusDigest{ConsensusEngineID: id, Data: data}, err
	case SealDigestType:
		id, data, err := decodeEngineMessage(decoder)
		return SealDigest{ConsensusEngineID: id, Data: data}, err
	case OtherDigestType:
		data, err := decodeBytes(decoder)
		return OtherDigest(data), err
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownDigestItemType, typ)
}

// ChangesTrieRoot returns the changes trie root held by the digest, if any.
func (d Digest) ChangesTrieRoot() (root common.Hash, ok bool) {
	for _, item := range d {
		if ct, is := item.(ChangesTrieRootDigest); is {
			return ct.Hash, true
		}
	}
	return common.Hash{}, false
}
