// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Justification is an encoded finality proof, tagged with the consensus
// engine that produced it.
type Justification struct {
	ConsensusEngineID    ConsensusEngineID
	EncodedJustification []byte
}

// Justifications is the collection of justifications of a block, at most
// one per consensus engine.
type Justifications []Justification

// Get returns the justification produced by the given engine.
func (j Justifications) Get(engineID ConsensusEngineID) ([]byte, bool) {
	for _, justification := range j {
		if justification.ConsensusEngineID == engineID {
			return justification.EncodedJustification, true
		}
	}
	return nil, false
}

// Append adds the justification unless one from the same engine exists.
// It returns false if the justification was not added.
func (j *Justifications) Append(justification Justification) bool {
	if _, ok := j.Get(justification.ConsensusEngineID); ok {
		return false
	}
	*j = append(*j, justification)
	return true
}

// Encode implements scale.Encodeable.
func (j Justifications) Encode(encoder scale.Encoder) error {
	err := encodeCompact(encoder, uint64(len(j)))
	if err != nil {
		return err
	}
	for _, justification := range j {
		err = encoder.Write(justification.ConsensusEngineID[:])
		if err != nil {
			return err
		}
		err = encodeBytes(encoder, justification.EncodedJustification)
		if err != nil {
			return err
		}
	}
	return nil
}

// Decode implements scale.Decodeable.
func (j *Justifications) Decode(decoder scale.Decoder) error {
	length, err := decodeCompact(decoder)
	if err != nil {
		return err
	}
	justifications := make(Justifications, 0, length)
	for i := uint64(0); i < length; i++ {
		id, data, err := decodeEngineMessage(decoder)
		if err != nil {
			return fmt.Errorf("decoding justification %d: %w", i, err)
		}
		justifications = append(justifications, Justification{
			ConsensusEngineID:    id,
			EncodedJustification: data,
		})
	}
	*j = justifications
	return nil
}
