// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"fmt"
	"sort"

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

// LightDataChecker checks remote answers against the local headers and CHT
// roots, re-executing calls over execution proofs.
type LightDataChecker struct {
	storage  Storage
	executor statemachine.CodeExecutor
	chtSize  uint64
}

var _ FetchChecker = (*LightDataChecker)(nil)

// NewLightDataChecker returns a checker over the light storage. chtSize
// must be the CHT size of the storage, cht.Size if zero.
func NewLightDataChecker(storage Storage, codeExecutor statemachine.CodeExecutor,
	chtSize uint64) *LightDataChecker {
	if chtSize == 0 {
		chtSize = cht.Size
	}
	return &LightDataChecker{
		storage:  storage,
		executor: codeExecutor,
		chtSize:  chtSize,
	}
}

// CheckHeaderProof implements FetchChecker.
func (c *LightDataChecker) CheckHeaderProof(request RemoteHeaderRequest, header *types.Header,
	proof trie.StorageProof) (*types.Header, error) {
	if header == nil {
		return nil, fmt.Errorf("%w: no header returned for block %d", blockchain.ErrInvalidCHTProof, request.Block)
	}
	if header.Number != request.Block {
		return nil, fmt.Errorf("%w: header #%d returned for block %d",
			blockchain.ErrInvalidCHTProof, header.Number, request.Block)
	}
	err := cht.CheckProof(request.CHTRoot, request.Block, header.Hash(), proof)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// CheckReadProof implements FetchChecker.
func (c *LightDataChecker) CheckReadProof(request RemoteReadRequest, proof trie.StorageProof) (
	map[string][]byte, error) {
	return trie.ReadProofCheck(request.Header.StateRoot, proof, request.Keys...)
}

// CheckReadChildProof implements FetchChecker.
func (c *LightDataChecker) CheckReadChildProof(request RemoteReadChildRequest, proof trie.StorageProof) (
	map[string][]byte, error) {
	db := proof.DB()
	childRoot, err := trie.ReadProofCheckOnDB(request.Header.StateRoot, db, common.ChildStorageKey(request.StorageKey))
	if err != nil {
		return nil, fmt.Errorf("checking child trie root: %w", err)
	}

	values := make(map[string][]byte, len(request.Keys))
	for _, key := range request.Keys {
		if childRoot == nil {
			values[string(key)] = nil
			continue
		}
		values[string(key)], err = trie.ReadProofCheckOnDB(common.BytesToHash(childRoot), db, key)
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

// CheckExecutionProof implements FetchChecker.
func (c *LightDataChecker) CheckExecutionProof(request RemoteCallRequest, proof trie.StorageProof) ([]byte, error) {
	return executor.CheckExecutionProof(c.executor, request.Header, request.Method, request.CallData, proof)
}

// CheckChangesProof implements FetchChecker. The changes trie roots below
// request.TriesRootsFrom are taken from the proof once checked against the
// local changes trie CHT roots.
func (c *LightDataChecker) CheckChangesProof(request RemoteChangesRequest, proof api.ChangesProof) (
	[]changestrie.BlockExtrinsic, error) {
	if proof.MaxBlock > request.MaxBlock.Number || proof.MaxBlock < request.LastBlock.Number {
		return nil, fmt.Errorf("%w: remote used max block %d, requested %d to %d",
			ErrInvalidChangesProof, proof.MaxBlock, request.LastBlock.Number, request.MaxBlock.Number)
	}

	err := c.checkChangesTriesRoots(request, proof)
	if err != nil {
		return nil, err
	}

	roots := changesTrieRoots{
		remote:     proof.Roots,
		localFrom:  request.TriesRootsFrom.Number,
		localRoots: request.TriesRoots,
	}
	r := changestrie.Range{
		Begin: max(request.FirstBlock.Number, 1),
		End:   changestrie.AnchorBlockID{Hash: request.MaxBlock.Hash, Number: proof.MaxBlock},
		Max:   request.LastBlock.Number,
	}
	changes, err := changestrie.KeyChangesProofCheck(roots, proof.Proof, r, request.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrChangesTrieAccessFailed, err)
	}
	return changes, nil
}

func (c *LightDataChecker) checkChangesTriesRoots(request RemoteChangesRequest, proof api.ChangesProof) error {
	if len(proof.Roots) == 0 {
		return nil
	}

	blocks := make([]uint64, 0, len(proof.Roots))
	for number := range proof.Roots {
		if number >= request.TriesRootsFrom.Number || number < request.FirstBlock.Number {
			return fmt.Errorf("%w: root of block %d returned, local roots start at %d",
				ErrInvalidChangesProof, number, request.TriesRootsFrom.Number)
		}
		blocks = append(blocks, number)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	db := proof.RootsProof.DB()
	return cht.ForEachCHTGroup(c.chtSize, blocks, func(chtNumber uint64, groupBlocks []uint64) error {
		localRoot, err := c.storage.ChangesTrieCHTRoot(c.chtSize, groupBlocks[0])
		if err != nil {
			return err
		}
		if localRoot == nil {
			return blockchain.ChangesTrieAccessFailedError(
				"changes trie CHT %d is not known locally", chtNumber)
		}
		for _, block := range groupBlocks {
			err = cht.CheckProofOnDB(*localRoot, block, proof.Roots[block], db)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// changesTrieRoots resolves changes trie roots from the proven remote roots
// and the roots held locally.
type changesTrieRoots struct {
	remote     map[uint64]common.Hash
	localFrom  uint64
	localRoots []common.Hash
}

func (r changesTrieRoots) Root(_ changestrie.AnchorBlockID, number uint64) (*common.Hash, error) {
	if root, ok := r.remote[number]; ok {
		return &root, nil
	}
	if number < r.localFrom || number-r.localFrom >= uint64(len(r.localRoots)) {
		return nil, nil
	}
	root := r.localRoots[number-r.localFrom]
	return &root, nil
}

// CheckBody implements FetchChecker.
func (c *LightDataChecker) CheckBody(request RemoteBodyRequest, body types.Body) (types.Body, error) {
	root := body.ExtrinsicsRoot()
	if root != request.Header.ExtrinsicsRoot {
		return nil, fmt.Errorf("%w: body of block #%d has root %s, header has %s",
			ErrExtrinsicsRootInvalid, request.Header.Number, root, request.Header.ExtrinsicsRoot)
	}
	return body, nil
}
