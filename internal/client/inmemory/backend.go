// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inmemory

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

var (
	errForeignOperation = errors.New("operation was not started by this backend")
	errStateNotFound    = errors.New("state not found")
)

// BackendOptions configures a Backend.
type BackendOptions struct {
	Blockchain Options
	// StatePruning is the number of blocks below the finalized one whose
	// state is kept. States are never pruned when it is nil.
	StatePruning *uint64
	// ChangesTriePruning is the minimal number of finalized blocks whose
	// changes trie is kept. Changes tries are never pruned when it is nil.
	ChangesTriePruning *uint64
}

type stateEntry struct {
	state  *statemachine.InMemoryBackend
	number uint64
	pins   uint
	// pruned is set when the state was pruned while pinned. It is removed
	// once the last pin is released.
	pruned bool
}

// Backend is an in-memory client backend.
type Backend struct {
	// mtx guards states and is always taken before the blockchain lock.
	mtx          sync.Mutex
	states       map[common.Hash]*stateEntry
	blockchain   *Blockchain
	changesTries *changesTriesStorage

	statePruning       *uint64
	changesTriePruning *uint64
}

var _ api.Backend = (*Backend)(nil)

// NewBackend returns an empty backend.
func NewBackend(options BackendOptions) *Backend {
	bc := NewBlockchain(options.Blockchain)
	return &Backend{
		states:             make(map[common.Hash]*stateEntry),
		blockchain:         bc,
		changesTries:       newChangesTriesStorage(bc),
		statePruning:       options.StatePruning,
		changesTriePruning: options.ChangesTriePruning,
	}
}

// PinnedState is the state of a block, kept until Release is called.
type PinnedState struct {
	*statemachine.InMemoryBackend
	release func()
	once    sync.Once
}

var _ api.State = (*PinnedState)(nil)

// Release unpins the state. It may be called several times.
func (s *PinnedState) Release() {
	s.once.Do(s.release)
}

// StateAt returns the pinned state of the block.
func (b *Backend) StateAt(hash common.Hash) (api.State, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	state, err := b.pin(hash)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// pin must be called with the mutex held.
func (b *Backend) pin(hash common.Hash) (*PinnedState, error) {
	entry, ok := b.states[hash]
	if !ok || entry.pruned {
		return nil, fmt.Errorf("%w: %w at block %s", blockchain.ErrUnknownBlock, errStateNotFound, hash)
	}
	entry.pins++
	return &PinnedState{
		InMemoryBackend: entry.state,
		release:         func() { b.unpin(hash) },
	}, nil
}

func (b *Backend) unpin(hash common.Hash) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	entry, ok := b.states[hash]
	if !ok || entry.pins == 0 {
		return
	}
	entry.pins--
	if entry.pins == 0 && entry.pruned {
		delete(b.states, hash)
		logger.Tracef("released pruned state of block %s", hash)
	}
}

// IsLocalStateAvailable returns true if the state of the block is held.
func (b *Backend) IsLocalStateAvailable(hash common.Hash) bool {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	entry, ok := b.states[hash]
	return ok && !entry.pruned
}

// BeginOperation implements api.Backend.
func (b *Backend) BeginOperation() (api.BlockImportOperation, error) {
	return &ImportOperation{backend: b}, nil
}

// BeginStateOperation implements api.Backend.
func (b *Backend) BeginStateOperation(operation api.BlockImportOperation, parent common.Hash) error {
	op, ok := operation.(*ImportOperation)
	if !ok || op.backend != b {
		return errForeignOperation
	}
	if parent == (common.Hash{}) {
		return nil
	}

	op.releaseOldState()
	op.oldState = nil

	b.mtx.Lock()
	defer b.mtx.Unlock()
	state, err := b.pin(parent)
	if err != nil {
		return err
	}
	op.oldState = state
	return nil
}

// AbortOperation implements api.Backend.
func (b *Backend) AbortOperation(operation api.BlockImportOperation) {
	op, ok := operation.(*ImportOperation)
	if !ok {
		return
	}
	op.releaseOldState()
}

// CommitOperation implements api.Backend.
func (b *Backend) CommitOperation(operation api.BlockImportOperation) error {
	op, ok := operation.(*ImportOperation)
	if !ok || op.backend != b {
		return errForeignOperation
	}
	defer op.releaseOldState()

	b.mtx.Lock()
	defer b.mtx.Unlock()
	bc := b.blockchain
	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	err := b.validate(op)
	if err != nil {
		return err
	}

	finalizedBefore := bc.storage.finalizedNumber
	for _, finalization := range op.finalized {
		err = bc.finalize(finalization.hash, finalization.justification)
		if err != nil {
			return err
		}
	}

	if op.pending != nil {
		header := op.pending.header
		hash := header.Hash()

		newState := op.newState
		if newState == nil {
			// header only imports inherit the state of the parent
			if parent, ok := b.states[header.ParentHash]; ok && !parent.pruned {
				newState = parent.state
			}
		}
		if newState != nil {
			if _, ok := b.states[hash]; !ok {
				b.states[hash] = &stateEntry{state: newState, number: header.Number}
			}
		}
		if op.changesTrie != nil {
			b.changesTries.insert(header.Number, op.changesTrie.Root, op.changesTrie.Entries)
		}

		err = bc.insert(hash, header, op.pending.justifications, op.pending.body, op.pending.state)
		if err != nil {
			return err
		}
		if len(op.cache) > 0 {
			bc.cache.insert(hash, op.cache)
		}
	}

	bc.writeAux(op.aux)

	if op.head != nil {
		err = bc.setHead(*op.head)
		if err != nil {
			return err
		}
	}

	if bc.storage.finalizedNumber > finalizedBefore {
		b.prune()
	}
	return nil
}

// validate checks the operation refers to known blocks only, so that
// applying it cannot fail halfway. It must be called with both locks held.
func (b *Backend) validate(op *ImportOperation) error {
	bc := b.blockchain
	known := func(hash common.Hash) bool {
		if _, ok := bc.storage.blocks[hash]; ok {
			return true
		}
		return op.pending != nil && op.pending.header.Hash() == hash
	}

	for _, finalization := range op.finalized {
		if _, ok := bc.storage.blocks[finalization.hash]; !ok {
			return blockchain.UnknownBlockError("finalize: %s", finalization.hash)
		}
	}
	if op.pending != nil && len(bc.storage.blocks) > 0 {
		header := op.pending.header
		if _, ok := bc.storage.blocks[header.ParentHash]; !ok && !known(header.Hash()) {
			return blockchain.UnknownBlockError("parent %s of block %s", header.ParentHash, header.Hash())
		}
	}
	if op.head != nil && !known(*op.head) {
		return blockchain.UnknownBlockError("set head: %s", *op.head)
	}
	return nil
}

// FinalizeBlock implements api.Backend.
func (b *Backend) FinalizeBlock(hash common.Hash, justification *types.Justification) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	bc := b.blockchain
	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	err := bc.finalize(hash, justification)
	if err != nil {
		return err
	}
	b.prune()
	return nil
}

// prune drops the states and changes tries which fell out of the pruning
// windows. It must be called with both locks held.
func (b *Backend) prune() {
	finalized := b.blockchain.storage.finalizedNumber

	if b.statePruning != nil && finalized > *b.statePruning {
		oldest := finalized - *b.statePruning
		for hash, entry := range b.states {
			if entry.number >= oldest || entry.number == 0 || entry.pruned {
				continue
			}
			if entry.pins > 0 {
				entry.pruned = true
				continue
			}
			delete(b.states, hash)
		}
	}

	if b.changesTriePruning != nil {
		entry, ok := b.states[b.blockchain.storage.finalizedHash]
		if !ok {
			return
		}
		config, err := statemachine.NewExt(statemachine.NewOverlayedChanges(), entry.state).ChangesTrieConfig()
		if err != nil {
			logger.Warnf("cannot prune changes tries: %s", err)
			return
		}
		if config == nil {
			return
		}
		b.changesTries.prune(changestrie.OldestChangesTrieBlock(*config, *b.changesTriePruning, finalized))
	}
}

// Revert implements api.Backend.
func (b *Backend) Revert(n uint64) (uint64, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	bc := b.blockchain
	bc.mtx.Lock()
	defer bc.mtx.Unlock()

	var reverted uint64
	for ; reverted < n; reverted++ {
		hash, ok := bc.revert()
		if !ok {
			break
		}
		if entry, ok := b.states[*hash]; ok {
			if entry.pins > 0 {
				entry.pruned = true
			} else {
				delete(b.states, *hash)
			}
		}
	}
	if reverted > 0 {
		logger.Debugf("reverted %d blocks, best block is now #%d %s",
			reverted, bc.storage.bestNumber, bc.storage.bestHash)
	}
	return reverted, nil
}

// Blockchain implements api.Backend.
func (b *Backend) Blockchain() api.Blockchain {
	return b.blockchain
}

// ChangesTrieStorage implements api.Backend.
func (b *Backend) ChangesTrieStorage() changestrie.Storage {
	return b.changesTries
}

// InsertAux implements api.AuxStore.
func (b *Backend) InsertAux(operations api.AuxDataOperations) error {
	return b.blockchain.InsertAux(operations)
}

// GetAux implements api.AuxStore.
func (b *Backend) GetAux(key []byte) ([]byte, error) {
	return b.blockchain.GetAux(key)
}

// String renders the block tree.
func (b *Backend) String() string {
	return b.blockchain.String()
}

type pendingBlock struct {
	header         *types.Header
	body           types.Body
	justifications types.Justifications
	state          api.NewBlockState
}

type finalization struct {
	hash          common.Hash
	justification *types.Justification
}

// ImportOperation is an in-memory block import operation.
type ImportOperation struct {
	backend     *Backend
	pending     *pendingBlock
	oldState    *PinnedState
	newState    *statemachine.InMemoryBackend
	changesTrie *statemachine.ChangesTrieTransaction
	aux         api.AuxDataOperations
	finalized   []finalization
	head        *common.Hash
	cache       map[string][]byte
}

var _ api.BlockImportOperation = (*ImportOperation)(nil)

func (op *ImportOperation) releaseOldState() {
	if op.oldState != nil {
		op.oldState.Release()
	}
}

// State implements api.BlockImportOperation.
func (op *ImportOperation) State() (statemachine.Backend, error) {
	if op.oldState == nil {
		return nil, nil
	}
	return op.oldState, nil
}

// SetBlockData implements api.BlockImportOperation.
func (op *ImportOperation) SetBlockData(header *types.Header, body types.Body,
	justifications types.Justifications, state api.NewBlockState) error {
	if op.pending != nil {
		return fmt.Errorf("%w: only one block per operation is allowed", blockchain.ErrBackend)
	}
	op.pending = &pendingBlock{
		header:         header.DeepCopy(),
		body:           body,
		justifications: justifications,
		state:          state,
	}
	return nil
}

// UpdateCache implements api.BlockImportOperation.
func (op *ImportOperation) UpdateCache(cache map[string][]byte) {
	op.cache = cache
}

// UpdateDBStorage implements api.BlockImportOperation.
func (op *ImportOperation) UpdateDBStorage(transaction statemachine.Transaction) error {
	op.newState = statemachine.NewInMemoryBackend(transaction.Storage)
	return nil
}

// ResetStorage implements api.BlockImportOperation.
func (op *ImportOperation) ResetStorage(s storage.Storage) (common.Hash, error) {
	op.newState = statemachine.NewInMemoryBackend(s)
	return op.newState.Root(), nil
}

// UpdateChangesTrie implements api.BlockImportOperation.
func (op *ImportOperation) UpdateChangesTrie(transaction *statemachine.ChangesTrieTransaction) error {
	op.changesTrie = transaction
	return nil
}

// InsertAux implements api.BlockImportOperation.
func (op *ImportOperation) InsertAux(operations api.AuxDataOperations) error {
	op.aux = append(op.aux, operations...)
	return nil
}

// MarkFinalized implements api.BlockImportOperation.
func (op *ImportOperation) MarkFinalized(hash common.Hash, justification *types.Justification) error {
	op.finalized = append(op.finalized, finalization{hash: hash, justification: justification})
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
