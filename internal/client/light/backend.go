// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
)

var errForeignOperation = errors.New("operation was not started by this backend")

// Backend is the backend of a light client. It stores headers only and
// holds the state of the genesis block once it has been imported.
type Backend struct {
	blockchain *Blockchain

	genesisMutex sync.RWMutex
	genesisState *statemachine.InMemoryBackend
}

var _ api.Backend = (*Backend)(nil)

// NewBackend returns a light backend over the storage, fetching the data
// it does not hold with fetcher.
func NewBackend(storage Storage, fetcher *FetcherRef, chtSize uint64) *Backend {
	return &Backend{
		blockchain: NewBlockchain(storage, fetcher, chtSize),
	}
}

type genesisState struct {
	*statemachine.InMemoryBackend
}

func (genesisState) Release() {}

// StateAt returns the genesis state. The states of other blocks are not
// available on light clients.
func (b *Backend) StateAt(hash common.Hash) (api.State, error) {
	if !b.IsLocalStateAvailable(hash) {
		return nil, fmt.Errorf("%w: state of block %s", blockchain.ErrNotAvailableOnLightClient, hash)
	}
	b.genesisMutex.RLock()
	defer b.genesisMutex.RUnlock()
	return genesisState{InMemoryBackend: b.genesisState}, nil
}

// IsLocalStateAvailable returns true for the genesis block once its state
// has been imported.
func (b *Backend) IsLocalStateAvailable(hash common.Hash) bool {
	b.genesisMutex.RLock()
	defer b.genesisMutex.RUnlock()
	if b.genesisState == nil {
		return false
	}
	return hash == b.blockchain.Info().GenesisHash
}

// BeginOperation implements api.Backend.
func (b *Backend) BeginOperation() (api.BlockImportOperation, error) {
	return &ImportOperation{backend: b}, nil
}

// BeginStateOperation does nothing, light clients do not execute blocks.
func (b *Backend) BeginStateOperation(operation api.BlockImportOperation, _ common.Hash) error {
	op, ok := operation.(*ImportOperation)
	if !ok || op.backend != b {
		return errForeignOperation
	}
	return nil
}

// AbortOperation implements api.Backend.
func (b *Backend) AbortOperation(api.BlockImportOperation) {}

// CommitOperation applies the finalizations of the operation, then imports
// its header with the aux writes, then applies its head override. The
// operation is validated before anything is written, so it only fails
// halfway if the storage fails to write. Each step is then written in its
// own storage commit and the earlier steps are kept.
func (b *Backend) CommitOperation(operation api.BlockImportOperation) error {
	op, ok := operation.(*ImportOperation)
	if !ok || op.backend != b {
		return errForeignOperation
	}
	local := b.blockchain.Storage

	err := b.validate(op)
	if err != nil {
		return err
	}

	for _, hash := range op.finalized {
		err = local.FinalizeHeader(hash)
		if err != nil {
			return fmt.Errorf("finalizing block %s: %w", hash, err)
		}
	}

	if op.header != nil {
		err = local.ImportHeader(op.header, op.cache, op.leafState, op.aux)
		if err != nil {
			return fmt.Errorf("importing header #%d: %w", op.header.Number, err)
		}
		if op.header.Number == 0 && op.state != nil {
			b.genesisMutex.Lock()
			b.genesisState = op.state
			b.genesisMutex.Unlock()
		}
	} else if len(op.aux) > 0 {
		err = local.InsertAux(op.aux)
		if err != nil {
			return err
		}
	}

	if op.head != nil {
		err = local.SetHead(*op.head)
		if err != nil {
			return fmt.Errorf("setting head to %s: %w", *op.head, err)
		}
	}
	return nil
}

// validate checks the finalizations of the operation are sequential and
// that its header and head override refer to known blocks.
func (b *Backend) validate(op *ImportOperation) error {
	local := b.blockchain.Storage
	known := func(hash common.Hash) (bool, error) {
		status, err := local.Status(types.NewBlockIDFromHash(hash))
		if err != nil {
			return false, err
		}
		return status == blockchain.BlockStatusInChain, nil
	}

	lastFinalized, err := local.LastFinalized()
	if err != nil {
		return err
	}
	for _, hash := range op.finalized {
		if hash == lastFinalized {
			continue
		}
		header, err := local.Header(hash)
		if err != nil {
			return err
		}
		if header == nil {
			return blockchain.UnknownBlockError("finalize: %s", hash)
		}
		if header.ParentHash != lastFinalized {
			return fmt.Errorf("%w: last finalized %s not parent of %s",
				blockchain.ErrNonSequentialFinalization, lastFinalized, hash)
		}
		lastFinalized = hash
	}

	var staged common.Hash
	if op.header != nil {
		staged = op.header.Hash()
		if op.header.Number > 0 {
			headerKnown, err := known(staged)
			if err != nil {
				return err
			}
			parentKnown, err := known(op.header.ParentHash)
			if err != nil {
				return err
			}
			if !headerKnown && !parentKnown {
				return blockchain.UnknownBlockError("parent %s of header %s", op.header.ParentHash, staged)
			}
		}
	}

	if op.head != nil && (op.header == nil || *op.head != staged) {
		headKnown, err := known(*op.head)
		if err != nil {
			return err
		}
		if !headKnown {
			return blockchain.UnknownBlockError("set head: %s", *op.head)
		}
	}
	return nil
}

// FinalizeBlock finalizes the header. Justifications are not kept.
func (b *Backend) FinalizeBlock(hash common.Hash, _ *types.Justification) error {
	return b.blockchain.Storage.FinalizeHeader(hash)
}

// Blockchain implements api.Backend.
func (b *Backend) Blockchain() api.Blockchain {
	return b.blockchain
}

// LightBlockchain returns the light blockchain of the backend.
func (b *Backend) LightBlockchain() *Blockchain {
	return b.blockchain
}

// ChangesTrieStorage returns nil, light clients do not keep changes tries.
func (b *Backend) ChangesTrieStorage() changestrie.Storage {
	return nil
}

// Revert is not available on light clients.
func (b *Backend) Revert(uint64) (uint64, error) {
	return 0, fmt.Errorf("%w: revert", blockchain.ErrNotAvailableOnLightClient)
}

// InsertAux implements api.AuxStore.
func (b *Backend) InsertAux(operations api.AuxDataOperations) error {
	return b.blockchain.Storage.InsertAux(operations)
}

// GetAux implements api.AuxStore.
func (b *Backend) GetAux(key []byte) ([]byte, error) {
	return b.blockchain.Storage.GetAux(key)
}

// ImportOperation is a light block import operation. It stages a header
// and drops block bodies and states, except the genesis state.
type ImportOperation struct {
	backend   *Backend
	header    *types.Header
	leafState api.NewBlockState
	cache     map[string][]byte
	state     *statemachine.InMemoryBackend
	aux       api.AuxDataOperations
	finalized []common.Hash
	head      *common.Hash
}

var _ api.BlockImportOperation = (*ImportOperation)(nil)

// State returns nil, light clients do not execute blocks.
func (*ImportOperation) State() (statemachine.Backend, error) {
	return nil, nil
}

// SetBlockData stages the header. The body and justifications are dropped.
func (op *ImportOperation) SetBlockData(header *types.Header, _ types.Body, _ types.Justifications,
	state api.NewBlockState) error {
	if op.header != nil {
		return fmt.Errorf("%w: only one block per operation is allowed", blockchain.ErrBackend)
	}
	op.header = header.DeepCopy()
	op.leafState = state
	return nil
}

// UpdateCache implements api.BlockImportOperation.
func (op *ImportOperation) UpdateCache(cache map[string][]byte) {
	op.cache = cache
}

// UpdateDBStorage drops the state changes.
func (*ImportOperation) UpdateDBStorage(statemachine.Transaction) error {
	return nil
}

// ResetStorage stages s as the genesis state and returns its root.
func (op *ImportOperation) ResetStorage(s storage.Storage) (common.Hash, error) {
	op.state = statemachine.NewInMemoryBackend(s)
	return op.state.Root(), nil
}

// UpdateChangesTrie drops the changes trie.
func (*ImportOperation) UpdateChangesTrie(*statemachine.ChangesTrieTransaction) error {
	return nil
}

// InsertAux implements api.BlockImportOperation.
func (op *ImportOperation) InsertAux(operations api.AuxDataOperations) error {
	op.aux = append(op.aux, operations...)
	return nil
}

// MarkFinalized implements api.BlockImportOperation. The justification is
// dropped.
func (op *ImportOperation) MarkFinalized(hash common.Hash, _ *types.Justification) error {
	op.finalized = append(op.finalized, hash)
	return nil
}

// MarkHead implements api.BlockImportOperation.
func (op *ImportOperation) MarkHead(hash common.Hash) error {
	if op.head != nil {
		return fmt.Errorf("%w: head already set to %s", blockchain.ErrBackend, *op.head)
	}
	op.head = &hash
	return nil
}
