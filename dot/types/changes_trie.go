// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"math"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// ChangesTrieConfiguration is stored under the :changes_trie key of the
// genesis state when the chain maintains changes tries.
type ChangesTrieConfiguration struct {
	// DigestInterval is the interval, in blocks, at which digest tries are
	// created. Values below 2 disable digests.
	DigestInterval uint32
	// DigestLevels is the maximal number of digest levels.
	DigestLevels uint32
}

// IsDigestBuildEnabled returns true if digest tries are enabled.
func (c ChangesTrieConfiguration) IsDigestBuildEnabled() bool {
	return c.DigestInterval > 1 && c.DigestLevels > 0
}

// MaxDigestInterval returns the interval of the top level digest,
// saturating at math.MaxUint64.
func (c ChangesTrieConfiguration) MaxDigestInterval() uint64 {
	if !c.IsDigestBuildEnabled() {
		return 1
	}

	interval := uint64(1)
	for level := uint32(0); level < c.DigestLevels; level++ {
		if interval > math.MaxUint64/uint64(c.DigestInterval) {
			return math.MaxUint64
		}
		interval *= uint64(c.DigestInterval)
	}
	return interval
}

// Encode implements scale.Encodeable.
func (c ChangesTrieConfiguration) Encode(encoder scale.Encoder) error {
	err := encoder.Encode(c.DigestInterval)
	if err != nil {
		return err
	}
	return encoder.Encode(c.DigestLevels)
}

// Decode implements scale.Decodeable.
func (c *ChangesTrieConfiguration) Decode(decoder scale.Decoder) error {
	err := decoder.Decode(&c.DigestInterval)
	if err != nil {
		return err
	}
	return decoder.Decode(&c.DigestLevels)
}
