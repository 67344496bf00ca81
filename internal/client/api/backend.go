// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package api

import (
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
)

// NewBlockState is the state of a block after it is imported.
type NewBlockState uint8

const (
	// NewBlockStateNormal is a block which is neither best nor finalized.
	NewBlockStateNormal NewBlockState = iota
	// NewBlockStateBest is the new best block.
	NewBlockStateBest
	// NewBlockStateFinal is the new best and finalized block.
	NewBlockStateFinal
)

// IsBest returns true if the block becomes the best block.
func (s NewBlockState) IsBest() bool {
	return s == NewBlockStateBest || s == NewBlockStateFinal
}

// IsFinal returns true if the block becomes the finalized block.
func (s NewBlockState) IsFinal() bool {
	return s == NewBlockStateFinal
}

func (s NewBlockState) String() string {
	switch s {
	case NewBlockStateBest:
		return "Best"
	case NewBlockStateFinal:
		return "Final"
	default:
		return "Normal"
	}
}

// AuxDataOperation is a write to the aux store. A nil Data deletes Key.
type AuxDataOperation struct {
	Key  []byte
	Data []byte
}

// AuxDataOperations is a batch of aux store writes, applied in order.
type AuxDataOperations []AuxDataOperation

// AuxStore provides access to an auxiliary database, storing data that is
// not part of the chain, like consensus data.
type AuxStore interface {
	// InsertAux applies the operations atomically.
	InsertAux(operations AuxDataOperations) error
	// GetAux returns the value of key, or nil.
	GetAux(key []byte) ([]byte, error)
}

// BlockImportOperation stages the import of at most one block and its
// side effects. Nothing is visible until the operation is committed.
type BlockImportOperation interface {
	// State returns the state of the parent of the block being imported,
	// nil if BeginStateOperation was not called.
	State() (statemachine.Backend, error)
	// SetBlockData stages the block. Body and justifications may be nil.
	SetBlockData(header *types.Header, body types.Body, justifications types.Justifications,
		state NewBlockState) error
	// UpdateCache stages blockchain cache entries recorded at the block.
	UpdateCache(cache map[string][]byte)
	// UpdateDBStorage stages the state of the block.
	UpdateDBStorage(transaction statemachine.Transaction) error
	// ResetStorage stages s as the full state of the block and returns its
	// root. It is used for the genesis block.
	ResetStorage(s storage.Storage) (common.Hash, error)
	// UpdateChangesTrie stages the changes trie of the block.
	UpdateChangesTrie(transaction *statemachine.ChangesTrieTransaction) error
	// InsertAux stages aux store writes, applied after the block.
	InsertAux(operations AuxDataOperations) error
	// MarkFinalized stages the finalization of a block, applied before the
	// block is inserted.
	MarkFinalized(hash common.Hash, justification *types.Justification) error
	// MarkHead stages a head override, applied last.
	MarkHead(hash common.Hash) error
}

// BlockchainCache resolves values recorded at blocks.
type BlockchainCache interface {
	// GetAt returns the value of key recorded at the block or at its
	// closest ancestor, or nil.
	GetAt(key []byte, hash common.Hash) ([]byte, error)
}

// Blockchain is the blockchain of a backend.
type Blockchain interface {
	blockchain.Backend
	// Cache returns the blockchain cache, or nil if there is none.
	Cache() BlockchainCache
}

// State is the state of a block handed out by a backend. The backend does
// not prune it until Release is called. Release is idempotent.
type State interface {
	statemachine.Backend
	Release()
}

// Backend is the client backend, storing the chain and the states of its
// blocks. Writes go through a BlockImportOperation.
type Backend interface {
	AuxStore
	// BeginOperation starts a new block import operation.
	BeginOperation() (BlockImportOperation, error)
	// BeginStateOperation attaches the state of the parent block to the
	// operation and pins it until the operation is committed or dropped.
	BeginStateOperation(operation BlockImportOperation, parent common.Hash) error
	// CommitOperation applies the operation atomically.
	CommitOperation(operation BlockImportOperation) error
	// AbortOperation drops the operation, releasing the state it pinned.
	AbortOperation(operation BlockImportOperation)
	// FinalizeBlock finalizes the block, attaching the justification to it.
	FinalizeBlock(hash common.Hash, justification *types.Justification) error
	// Blockchain returns the chain of the backend.
	Blockchain() Blockchain
	// ChangesTrieStorage returns the changes tries storage, or nil if the
	// backend does not keep changes tries.
	ChangesTrieStorage() changestrie.Storage
	// StateAt returns the state of the block.
	StateAt(hash common.Hash) (State, error)
	// Revert reverts up to n unfinalized blocks of the best chain and
	// returns the number of blocks reverted.
	Revert(n uint64) (uint64, error)
	// IsLocalStateAvailable returns true if the state of the block is held
	// by the backend.
	IsLocalStateAvailable(hash common.Hash) bool
}
