// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package api

import (
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ImportSummary is the summary of an imported block.
type ImportSummary struct {
	Hash      common.Hash
	Origin    consensus.BlockOrigin
	Header    *types.Header
	IsNewBest bool
	// TreeRoute from the previous best block to the new one, set when the
	// import switches forks.
	TreeRoute *blockchain.TreeRoute
}

// FinalizeSummary is the summary of a finalization.
type FinalizeSummary struct {
	// Header of the last finalized block.
	Header *types.Header
	// Finalized blocks, oldest first. Only the last ones are kept.
	Finalized []common.Hash
}

// BlockImportNotification is sent for every imported block.
type BlockImportNotification struct {
	Hash      common.Hash
	Origin    consensus.BlockOrigin
	Header    *types.Header
	IsNewBest bool
	TreeRoute *blockchain.TreeRoute
}

// NewBlockImportNotificationFromSummary returns the notification of the
// import.
func NewBlockImportNotificationFromSummary(summary ImportSummary) BlockImportNotification {
	return BlockImportNotification{
		Hash:      summary.Hash,
		Origin:    summary.Origin,
		Header:    summary.Header,
		IsNewBest: summary.IsNewBest,
		TreeRoute: summary.TreeRoute,
	}
}

// FinalityNotification is sent for every finalized block.
type FinalityNotification struct {
	Hash   common.Hash
	Header *types.Header
}

// BlockchainEvents gives access to the chain event streams. Subscribers
// whose channel is full when an event is sent are dropped.
type BlockchainEvents interface {
	ImportNotificationStream() (id uint32, ch <-chan BlockImportNotification)
	FreeImportNotificationStream(id uint32)
	FinalityNotificationStream() (id uint32, ch <-chan FinalityNotification)
	FreeFinalityNotificationStream(id uint32)
}
