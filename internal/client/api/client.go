// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package api

import (
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ClientImportOperation is a block import operation run under the client
// import lock, together with the notifications to send once it is
// committed.
type ClientImportOperation struct {
	Op              BlockImportOperation
	NotifyImported  *ImportSummary
	NotifyFinalized *FinalizeSummary
}

// ChangesProof is the proof of the changes of a key in a range of blocks.
type ChangesProof struct {
	// MaxBlock is the block the changes tries were looked up from.
	MaxBlock uint64
	// Proof holds the nodes of the changes tries read.
	Proof trie.StorageProof
	// Roots are the changes trie roots of the blocks below the first block
	// the requester has headers for.
	Roots map[uint64]common.Hash
	// RootsProof proves Roots against changes trie CHT roots.
	RootsProof trie.StorageProof
}
