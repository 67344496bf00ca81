// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"fmt"

	"github.com/ChainSafe/chainstate/lib/common"
)

// BlockID identifies a block either by hash or by number.
// A number only identifies blocks of the canonical chain.
type BlockID interface {
	fmt.Stringer
	isBlockID()
}

// BlockIDHash identifies a block by its hash.
type BlockIDHash common.Hash

func (BlockIDHash) isBlockID() {}

func (id BlockIDHash) String() string {
	return common.Hash(id).String()
}

// BlockIDNumber identifies a block of the canonical chain by its number.
type BlockIDNumber uint64

func (BlockIDNumber) isBlockID() {}

func (id BlockIDNumber) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

// NewBlockIDFromHash returns the id of the block with the given hash.
func NewBlockIDFromHash(hash common.Hash) BlockID {
	return BlockIDHash(hash)
}

// NewBlockIDFromNumber returns the id of the canonical block at number.
func NewBlockIDFromNumber(number uint64) BlockID {
	return BlockIDNumber(number)
}
