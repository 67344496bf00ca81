// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package blockchain

import (
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Info is the blockchain info.
type Info struct {
	BestHash        common.Hash
	BestNumber      uint64
	GenesisHash     common.Hash
	FinalizedHash   common.Hash
	FinalizedNumber uint64
	NumberLeaves    int
}

// BlockStatus is the status of a block.
type BlockStatus uint8

const (
	// BlockStatusUnknown is the status of a block not in the chain.
	BlockStatusUnknown BlockStatus = iota
	// BlockStatusInChain is the status of a block in the chain.
	BlockStatusInChain
)

func (s BlockStatus) String() string {
	switch s {
	case BlockStatusInChain:
		return "InChain"
	default:
		return "Unknown"
	}
}

// HeaderBackend is the blockchain database header backend. Does not perform
// any validation. Lookups return nil values without error for unknown blocks.
type HeaderBackend interface {
	// Header returns the block header, or nil if it is not found.
	Header(hash common.Hash) (*types.Header, error)
	// Info returns the blockchain info.
	Info() Info
	// Status returns the status of the block.
	Status(id types.BlockID) (BlockStatus, error)
	// Number returns the number of the block with the given hash, or nil.
	Number(hash common.Hash) (*uint64, error)
	// Hash returns the hash of the canonical block at number, or nil.
	Hash(number uint64) (*common.Hash, error)
}

// Backend is the blockchain database backend. Does not perform any validation.
type Backend interface {
	HeaderBackend
	HeaderMetadata

	// Body returns the block body, or nil if it is not stored.
	Body(hash common.Hash) (types.Body, error)
	// Justifications returns the block justifications, or nil.
	Justifications(hash common.Hash) (types.Justifications, error)
	// LastFinalized returns the hash of the last finalized block.
	LastFinalized() (common.Hash, error)
	// Leaves returns the hashes of all blocks with no children, best first.
	Leaves() ([]common.Hash, error)
	// Children returns the hashes of the children of parent.
	Children(parent common.Hash) ([]common.Hash, error)
}

// BlockHashFromID converts a block id into its hash, nil if unknown.
func BlockHashFromID(backend HeaderBackend, id types.BlockID) (*common.Hash, error) {
	switch id := id.(type) {
	case types.BlockIDHash:
		hash := common.Hash(id)
		return &hash, nil
	case types.BlockIDNumber:
		return backend.Hash(uint64(id))
	default:
		panic("unreachable")
	}
}

// BlockNumberFromID converts a block id into its number, nil if unknown.
func BlockNumberFromID(backend HeaderBackend, id types.BlockID) (*uint64, error) {
	switch id := id.(type) {
	case types.BlockIDHash:
		return backend.Number(common.Hash(id))
	case types.BlockIDNumber:
		number := uint64(id)
		return &number, nil
	default:
		panic("unreachable")
	}
}

// ExpectBlockHashFromID converts a block id into its hash, failing with
// ErrUnknownBlock if the block is unknown.
func ExpectBlockHashFromID(backend HeaderBackend, id types.BlockID) (common.Hash, error) {
	hash, err := BlockHashFromID(backend, id)
	if err != nil {
		return common.Hash{}, err
	}
	if hash == nil {
		return common.Hash{}, UnknownBlockError("expect block hash from id: %s", id)
	}
	return *hash, nil
}

// ExpectBlockNumberFromID converts a block id into its number, failing with
// ErrUnknownBlock if the block is unknown.
func ExpectBlockNumberFromID(backend HeaderBackend, id types.BlockID) (uint64, error) {
	number, err := BlockNumberFromID(backend, id)
	if err != nil {
		return 0, err
	}
	if number == nil {
		return 0, UnknownBlockError("expect block number from id: %s", id)
	}
	return *number, nil
}

// ExpectHeader returns the header of the block, failing with
// ErrUnknownBlock if it is not found.
func ExpectHeader(backend HeaderBackend, hash common.Hash) (*types.Header, error) {
	header, err := backend.Header(hash)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, UnknownBlockError("expect header: %s", hash)
	}
	return header, nil
}

// HeaderByID returns the header of the block with the given id, or nil.
func HeaderByID(backend HeaderBackend, id types.BlockID) (*types.Header, error) {
	hash, err := BlockHashFromID(backend, id)
	if err != nil || hash == nil {
		return nil, err
	}
	return backend.Header(*hash)
}
