// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/ChainSafe/chainstate/lib/common"
)

// HeaderProof returns the canonical header at the block number with the
// proof of its hash in the CHT covering it.
func (c *Client) HeaderProof(id types.BlockID) (*types.Header, trie.StorageProof, error) {
	bc := c.backend.Blockchain()
	number, err := blockchain.ExpectBlockNumberFromID(bc, id)
	if err != nil {
		return nil, nil, err
	}
	hash, err := blockchain.ExpectBlockHashFromID(bc, types.NewBlockIDFromNumber(number))
	if err != nil {
		return nil, nil, err
	}
	header, err := blockchain.ExpectHeader(bc, hash)
	if err != nil {
		return nil, nil, err
	}

	chtNumber, ok := cht.BlockToCHTNumber(c.options.CHTSize, number)
	if !ok {
		return nil, nil, blockchain.BackendError("no CHT covers block #%d", number)
	}
	proof, err := cht.BuildProof(c.options.CHTSize, chtNumber, []uint64{number}, bc.Hash)
	if err != nil {
		return nil, nil, err
	}
	return header, proof, nil
}

func (c *Client) trieStateAt(id types.BlockID) (api.State, statemachine.TrieBackend, error) {
	state, err := c.StateAt(id)
	if err != nil {
		return nil, nil, err
	}
	trieState, ok := state.TryIntoTrieBackend()
	if !ok {
		state.Release()
		return nil, nil, blockchain.BackendError("state at block %s cannot be proven", id)
	}
	return state, trieState, nil
}

// ReadProof returns the proof of the values of keys in the state of the
// block.
func (c *Client) ReadProof(id types.BlockID, keys [][]byte) (trie.StorageProof, error) {
	state, trieState, err := c.trieStateAt(id)
	if err != nil {
		return nil, err
	}
	defer state.Release()
	return trieState.ProveRead(keys...)
}

// ReadChildProof returns the proof of the values of keys in the child trie
// in the state of the block.
func (c *Client) ReadChildProof(id types.BlockID, childKey []byte, keys [][]byte) (trie.StorageProof, error) {
	state, trieState, err := c.trieStateAt(id)
	if err != nil {
		return nil, err
	}
	defer state.Release()
	return trieState.ProveChildRead(childKey, keys...)
}

// ExecutionProof executes method on the state of the block, after
// initializing the next block, and returns its result with the proof of
// all the state read.
func (c *Client) ExecutionProof(id types.BlockID, method string, callData []byte) (
	[]byte, trie.StorageProof, error) {
	header, err := c.expectHeader(id)
	if err != nil {
		return nil, nil, err
	}
	state, trieState, err := c.trieStateAt(types.NewBlockIDFromHash(header.Hash()))
	if err != nil {
		return nil, nil, err
	}
	defer state.Release()
	return executor.ProveExecution(c.executor, trieState, header, method, callData)
}

// changesTrieStorage returns the changes tries storage, failing with
// ErrChangesTriesNotSupported when changes tries are disabled.
func (c *Client) changesTrieStorage() (changestrie.Storage, error) {
	config, err := c.StorageAt(types.NewBlockIDFromHash(c.Info().BestHash), common.ChangesTrieConfigKey)
	if err != nil {
		return nil, err
	}
	storage := c.backend.ChangesTrieStorage()
	if config == nil || storage == nil {
		return nil, blockchain.ErrChangesTriesNotSupported
	}
	return storage, nil
}

// KeyChanges returns the extrinsics which changed key in the blocks from
// first to last, newest first. The genesis block is skipped.
func (c *Client) KeyChanges(first uint64, last types.BlockID, key []byte) ([]changestrie.BlockExtrinsic, error) {
	storage, err := c.changesTrieStorage()
	if err != nil {
		return nil, err
	}
	bc := c.backend.Blockchain()
	lastHash, err := blockchain.ExpectBlockHashFromID(bc, last)
	if err != nil {
		return nil, err
	}
	lastNumber, err := blockchain.ExpectBlockNumberFromID(bc, last)
	if err != nil {
		return nil, err
	}

	r := changestrie.Range{
		Begin: max(first, 1),
		End:   changestrie.AnchorBlockID{Hash: lastHash, Number: lastNumber},
		Max:   lastNumber,
	}
	changes, err := changestrie.KeyChanges(storage, r, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrChangesTrieAccessFailed, err)
	}
	return changes, nil
}

// KeyChangesProof returns the proof of the changes of key in the blocks
// from first to last, looked up on the fork of maxBlock. The requester has
// the headers of the blocks from minBlock on, so the changes trie roots of
// the blocks below it are returned with their proof against the changes
// trie CHTs.
func (c *Client) KeyChangesProof(first, last, minBlock, maxBlock common.Hash, key []byte) (
	api.ChangesProof, error) {
	storage, err := c.changesTrieStorage()
	if err != nil {
		return api.ChangesProof{}, err
	}

	bc := c.backend.Blockchain()
	numbers := make([]uint64, 4)
	for i, hash := range []common.Hash{first, last, minBlock, maxBlock} {
		numbers[i], err = blockchain.ExpectBlockNumberFromID(bc, types.NewBlockIDFromHash(hash))
		if err != nil {
			return api.ChangesProof{}, err
		}
	}
	firstNumber, lastNumber, minNumber, maxNumber := numbers[0], numbers[1], numbers[2], numbers[3]
	if firstNumber > lastNumber || lastNumber > maxNumber {
		return api.ChangesProof{}, blockchain.ChangesTrieAccessFailedError(
			"invalid changes trie range: first %d, last %d, max %d", firstNumber, lastNumber, maxNumber)
	}

	r := changestrie.Range{
		Begin: max(firstNumber, 1),
		End:   changestrie.AnchorBlockID{Hash: maxBlock, Number: maxNumber},
		Max:   lastNumber,
	}
	proof, err := changestrie.KeyChangesProof(storage, r, key)
	if err != nil {
		return api.ChangesProof{}, fmt.Errorf("%w: %w", blockchain.ErrChangesTrieAccessFailed, err)
	}

	roots := make(map[uint64]common.Hash)
	var rootBlocks []uint64
	for number := r.Begin; number < minNumber && number <= lastNumber; number++ {
		root, err := storage.Root(r.End, number)
		if err != nil {
			return api.ChangesProof{}, fmt.Errorf("%w: %w", blockchain.ErrChangesTrieAccessFailed, err)
		}
		if root == nil {
			continue
		}
		roots[number] = *root
		rootBlocks = append(rootBlocks, number)
	}

	rootsProof, err := c.changesTrieRootsProof(rootBlocks)
	if err != nil {
		return api.ChangesProof{}, err
	}

	return api.ChangesProof{
		MaxBlock:   maxNumber,
		Proof:      proof,
		Roots:      roots,
		RootsProof: rootsProof,
	}, nil
}

// changesTrieRootsProof proves the changes trie roots of the canonical
// blocks against the changes trie CHTs covering them.
func (c *Client) changesTrieRootsProof(blocks []uint64) (trie.StorageProof, error) {
	bc := c.backend.Blockchain()
	rootAt := func(number uint64) (*common.Hash, error) {
		header, err := blockchain.HeaderByID(bc, types.NewBlockIDFromNumber(number))
		if err != nil || header == nil {
			return nil, err
		}
		root, ok := header.ChangesTrieRoot()
		if !ok {
			return nil, nil
		}
		return &root, nil
	}

	var proofs []trie.StorageProof
	err := cht.ForEachCHTGroup(c.options.CHTSize, blocks, func(chtNumber uint64, groupBlocks []uint64) error {
		proof, err := cht.BuildProof(c.options.CHTSize, chtNumber, groupBlocks, rootAt)
		if err != nil {
			return err
		}
		proofs = append(proofs, proof)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trie.Merge(proofs...), nil
}
