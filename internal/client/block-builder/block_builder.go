// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package blockbuilder

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "block-builder"))

var errStateRootMismatch = errors.New("state root mismatch")

// Provider creates block builders.
type Provider interface {
	// NewBlockAt creates a new block, built on top of parent.
	NewBlockAt(parent common.Hash, inherentDigests types.Digest) (*BlockBuilder, error)
}

// BuiltBlock is a block produced by the block builder, with the storage
// changes it makes on top of the state of its parent.
type BuiltBlock struct {
	Block          *types.Block
	StorageChanges statemachine.StorageChanges
}

// BlockBuilder builds a new block from a stream of extrinsics.
type BlockBuilder struct {
	callExecutor    api.CallExecutor
	backend         api.Backend
	manager         statemachine.ExecutionManager
	parentHash      common.Hash
	inherentDigests types.Digest
	extrinsics      types.Body
	overlay         *statemachine.OverlayedChanges
}

// New creates a block builder on top of the parent block, initializing the
// block with the inherent digests.
func New(callExecutor api.CallExecutor, backend api.Backend, parentHash common.Hash, parentNumber uint64,
	inherentDigests types.Digest, manager statemachine.ExecutionManager) (*BlockBuilder, error) {
	ok, err := executor.HasAPI(callExecutor, parentHash, executor.BlockBuilderApplyExtrinsic)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: runtime at %s does not implement %s",
			blockchain.ErrVersionInvalid, parentHash.Short(), executor.BlockBuilderAPI)
	}

	header := &types.Header{
		ParentHash: parentHash,
		Number:     parentNumber + 1,
		Digest:     inherentDigests,
	}

	overlay := statemachine.NewOverlayedChanges()
	overlay.SetTrackExtrinsics(true)
	_, err = executor.CallAPIInContext(callExecutor, parentHash, executor.CoreInitializeBlock, header,
		overlay, nil, manager)
	if err != nil {
		return nil, fmt.Errorf("initializing block #%d: %w", header.Number, err)
	}

	return &BlockBuilder{
		callExecutor:    callExecutor,
		backend:         backend,
		manager:         manager,
		parentHash:      parentHash,
		inherentDigests: inherentDigests,
		overlay:         overlay,
	}, nil
}

// Push applies the extrinsic on top of the block being built and appends it
// to the block. An extrinsic which fails to apply leaves the block unchanged.
func (bb *BlockBuilder) Push(extrinsic types.Extrinsic) error {
	saved := bb.overlay.Clone()
	_, err := executor.CallAPIInContext(bb.callExecutor, bb.parentHash, executor.BlockBuilderApplyExtrinsic,
		extrinsic, bb.overlay, nil, bb.manager)
	if err != nil {
		bb.overlay = saved
		return err
	}
	bb.extrinsics = append(bb.extrinsics, common.CopyBytes(extrinsic))
	return nil
}

// Extrinsics returns the extrinsics pushed so far.
func (bb *BlockBuilder) Extrinsics() types.Body {
	return bb.extrinsics
}

// Bake finalizes the block and returns it with its storage changes.
func (bb *BlockBuilder) Bake() (*BuiltBlock, error) {
	header, err := executor.CallAPIInContext(bb.callExecutor, bb.parentHash, executor.BlockBuilderFinalizeBlock,
		executor.Nothing{}, bb.overlay, nil, bb.manager)
	if err != nil {
		return nil, fmt.Errorf("finalizing block: %w", err)
	}

	header.ExtrinsicsRoot = bb.extrinsics.ExtrinsicsRoot()
	digest := make(types.Digest, 0, len(bb.inherentDigests)+len(header.Digest))
	digest = append(digest, bb.inherentDigests...)
	header.Digest = append(digest, header.Digest...)

	state, err := bb.backend.StateAt(bb.parentHash)
	if err != nil {
		return nil, err
	}
	defer state.Release()

	changes, err := statemachine.NewExt(bb.overlay, state).StorageChanges()
	if err != nil {
		return nil, fmt.Errorf("collecting storage changes: %w", err)
	}
	if changes.StorageRoot != header.StateRoot {
		return nil, fmt.Errorf("%w: runtime returned %s, computed %s",
			errStateRootMismatch, header.StateRoot, changes.StorageRoot)
	}

	block := &types.Block{Header: *header, Body: bb.extrinsics}
	logger.Debugf("baked block #%d (%s) with %d extrinsics",
		header.Number, header.Hash().Short(), len(bb.extrinsics))
	return &BuiltBlock{Block: block, StorageChanges: changes}, nil
}
