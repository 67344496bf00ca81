// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Storage is the local storage of a light client. It holds headers, and
// the CHT roots of the ancient groups of finalized headers it pruned.
type Storage interface {
	api.AuxStore
	blockchain.HeaderBackend
	blockchain.HeaderMetadata

	// ImportHeader stores a header with the blockchain cache entries
	// recorded at it, and applies the aux writes in the same commit.
	ImportHeader(header *types.Header, cache map[string][]byte, state api.NewBlockState,
		aux api.AuxDataOperations) error
	// SetHead makes the block the best block.
	SetHead(hash common.Hash) error
	// FinalizeHeader finalizes the block, which must be a child of the last
	// finalized block.
	FinalizeHeader(hash common.Hash) error
	// LastFinalized returns the hash of the last finalized block.
	LastFinalized() (common.Hash, error)
	// Leaves returns the leaves, best first.
	Leaves() ([]common.Hash, error)
	// Children returns the children of the block.
	Children(parent common.Hash) ([]common.Hash, error)
	// HeaderCHTRoot returns the root of the header CHT covering the block,
	// or nil if it is not built.
	HeaderCHTRoot(chtSize, block uint64) (*common.Hash, error)
	// ChangesTrieCHTRoot returns the root of the changes trie roots CHT
	// covering the block, or nil if it is not built.
	ChangesTrieCHTRoot(chtSize, block uint64) (*common.Hash, error)
	// Cache returns the blockchain cache.
	Cache() api.BlockchainCache
}
