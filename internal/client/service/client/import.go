// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"fmt"
	"time"

	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
)

// chainStatus returns the status of the block in the backend, ignoring
// the block being imported.
func (c *Client) chainStatus(hash common.Hash) (consensus.BlockStatus, error) {
	status, err := c.backend.Blockchain().Status(types.NewBlockIDFromHash(hash))
	if err != nil {
		return consensus.BlockStatusUnknown, err
	}
	if status != blockchain.BlockStatusInChain {
		return consensus.BlockStatusUnknown, nil
	}
	if c.backend.IsLocalStateAvailable(hash) {
		return consensus.BlockStatusInChainWithState, nil
	}
	return consensus.BlockStatusInChainPruned, nil
}

func (c *Client) setImportingBlock(hash *common.Hash) {
	c.importingBlockMutex.Lock()
	defer c.importingBlockMutex.Unlock()
	c.importingBlock = hash
}

// CheckBlock implements consensus.BlockImport.
func (c *Client) CheckBlock(params consensus.BlockCheckParams) (consensus.ImportResult, error) {
	status, err := c.BlockStatus(types.NewBlockIDFromHash(params.Hash))
	if err != nil {
		return nil, err
	}
	if status != consensus.BlockStatusUnknown && !params.ImportExisting {
		return consensus.ImportResultAlreadyInChain{}, nil
	}

	parentStatus, err := c.BlockStatus(types.NewBlockIDFromHash(params.ParentHash))
	if err != nil {
		return nil, err
	}
	switch parentStatus {
	case consensus.BlockStatusUnknown:
		return consensus.ImportResultUnknownParent{}, nil
	case consensus.BlockStatusInChainPruned:
		if !params.AllowMissingState {
			return consensus.ImportResultMissingState{}, nil
		}
	}
	return consensus.ImportResultImported{}, nil
}

// ImportBlock implements consensus.BlockImport.
func (c *Client) ImportBlock(params consensus.BlockImportParams, newCache map[string][]byte) (
	result consensus.ImportResult, err error) {
	start := time.Now()
	hash := params.PostHash()
	c.setImportingBlock(&hash)
	defer func() {
		c.setImportingBlock(nil)
		c.metrics.observeImport(result, err, start)
	}()

	err = c.LockImportAndRun(func(op *api.ClientImportOperation) error {
		var err error
		result, err = c.lockedImportBlock(op, params, newCache)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("importing block #%d (%s): %w", params.Header.Number, hash.Short(), err)
	}

	if imported, ok := result.(consensus.ImportResultImported); ok && imported.IsNewBest {
		c.telemetry.SendMessage(telemetry.NewBlockImportTM(&hash, params.Header.Number, params.Origin.String()))
	}
	return result, nil
}

func (c *Client) lockedImportBlock(op *api.ClientImportOperation, params consensus.BlockImportParams,
	newCache map[string][]byte) (consensus.ImportResult, error) {
	header := params.PostHeader()
	hash := header.Hash()
	parentHash := header.ParentHash

	parentStatus, err := c.chainStatus(parentHash)
	if err != nil {
		return nil, err
	}
	if parentStatus == consensus.BlockStatusUnknown {
		return consensus.ImportResultUnknownParent{}, nil
	}

	status, err := c.chainStatus(hash)
	if err != nil {
		return nil, err
	}
	if status != consensus.BlockStatusUnknown && !params.ImportExisting {
		return consensus.ImportResultAlreadyInChain{}, nil
	}

	info := c.backend.Blockchain().Info()
	notify := params.Origin.IsNotifiable()

	if params.Finalized && parentHash != info.FinalizedHash {
		err = c.applyFinality(op, parentHash, nil, info.BestHash, notify, false)
		if err != nil {
			return nil, err
		}
	}

	changes := params.StorageChanges
	if changes == nil && params.Body != nil {
		if parentStatus != consensus.BlockStatusInChainWithState {
			return consensus.ImportResultMissingState{}, nil
		}
		changes, err = c.executeBlock(params.Origin, parentHash, params.Header, params.Body)
		if err != nil {
			return nil, err
		}
	}

	isNewBest := params.Finalized
	if !isNewBest {
		switch forkChoice := params.ForkChoice.(type) {
		case consensus.ForkChoiceCustom:
			isNewBest = bool(forkChoice)
		default:
			isNewBest = header.Number > info.BestNumber
		}
	}

	leafState := api.NewBlockStateNormal
	switch {
	case params.Finalized:
		leafState = api.NewBlockStateFinal
	case isNewBest:
		leafState = api.NewBlockStateBest
	}

	var treeRoute *blockchain.TreeRoute
	if isNewBest && info.BestHash != parentHash && info.BestHash != hash {
		route, err := blockchain.NewTreeRoute(c.backend.Blockchain(), info.BestHash, parentHash)
		if err != nil {
			return nil, err
		}
		treeRoute = &route
	}

	if changes != nil {
		err = c.backend.BeginStateOperation(op.Op, parentHash)
		if err != nil {
			return nil, err
		}
		err = op.Op.UpdateDBStorage(changes.Transaction)
		if err != nil {
			return nil, err
		}
		if changes.ChangesTrie != nil {
			err = op.Op.UpdateChangesTrie(changes.ChangesTrie)
			if err != nil {
				return nil, err
			}
		}
	}

	var justifications types.Justifications
	if params.Justification != nil {
		justifications = types.Justifications{*params.Justification}
	}
	err = op.Op.SetBlockData(header, params.Body, justifications, leafState)
	if err != nil {
		return nil, err
	}
	if len(newCache) > 0 {
		op.Op.UpdateCache(newCache)
	}
	if len(params.Auxiliary) > 0 {
		aux := make(api.AuxDataOperations, len(params.Auxiliary))
		for i, entry := range params.Auxiliary {
			aux[i] = api.AuxDataOperation{Key: entry.Key, Data: entry.Data}
		}
		err = op.Op.InsertAux(aux)
		if err != nil {
			return nil, err
		}
	}

	if params.Finalized && notify {
		summary := op.NotifyFinalized
		if summary == nil {
			summary = &api.FinalizeSummary{}
		}
		summary.Header = header
		summary.Finalized = boundFinalized(append(summary.Finalized, hash), c.options.FinalityNotificationLimit)
		op.NotifyFinalized = summary
	}
	if notify {
		op.NotifyImported = &api.ImportSummary{
			Hash:      hash,
			Origin:    params.Origin,
			Header:    header,
			IsNewBest: isNewBest,
			TreeRoute: treeRoute,
		}
	}

	logger.Debugf("imported block #%d (%s) from %s as %s", header.Number, hash.Short(), params.Origin, leafState)
	return consensus.ImportResultImported{
		HeaderOnly: params.Body == nil,
		IsNewBest:  isNewBest,
	}, nil
}

// executeBlock executes the block on the state of its parent and returns
// the storage changes it makes.
func (c *Client) executeBlock(origin consensus.BlockOrigin, parentHash common.Hash, header types.Header,
	body types.Body) (*statemachine.StorageChanges, error) {
	overlay := statemachine.NewOverlayedChanges()
	overlay.SetTrackExtrinsics(true)
	manager := statemachine.ExecutionManager{
		Strategy:           c.strategies.ForOrigin(origin),
		OnConsensusFailure: c.onConsensusFailure(executor.CoreExecuteBlock.Name),
	}

	_, err := executor.CallAPIInContext(c.executor, parentHash, executor.CoreExecuteBlock,
		types.NewBlock(header, body), overlay, nil, manager)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrExecutionFailed, err)
	}

	state, err := c.backend.StateAt(parentHash)
	if err != nil {
		return nil, err
	}
	defer state.Release()

	changes, err := statemachine.NewExt(overlay, state).StorageChanges()
	if err != nil {
		return nil, fmt.Errorf("collecting storage changes: %w", err)
	}
	if changes.StorageRoot != header.StateRoot {
		return nil, fmt.Errorf("%w: computed state root %s, header has %s",
			blockchain.ErrExecutionFailed, changes.StorageRoot, header.StateRoot)
	}
	return &changes, nil
}

// onConsensusFailure reports a mismatch between native and on-chain
// executions of method, then resolves it with the configured handler. By
// default the call fails.
func (c *Client) onConsensusFailure(method string) statemachine.ConsensusFailureHandler {
	return func(wasm, native statemachine.CallResult) statemachine.CallResult {
		logger.Warnf("consensus error between wasm and native execution of %s: wasm %x (%v), native %x (%v)",
			method, wasm.Value, wasm.Err, native.Value, native.Err)
		c.telemetry.SendMessage(telemetry.NewExecutionMismatchTM(method,
			native.Value, native.Err, wasm.Value, wasm.Err))

		if c.options.OnConsensusFailure != nil {
			return c.options.OnConsensusFailure(wasm, native)
		}
		return statemachine.CallResult{
			Err: fmt.Errorf("%w: %s", blockchain.ErrConsensusMismatch, method),
		}
	}
}
