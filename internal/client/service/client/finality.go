// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

// FinalizeBlock finalizes the block and its unfinalized ancestors. Only the
// block itself gets the justification.
func (c *Client) FinalizeBlock(id types.BlockID, justification *types.Justification, notify bool) error {
	return c.LockImportAndRun(func(op *api.ClientImportOperation) error {
		return c.ApplyFinality(op, id, justification, notify)
	})
}

// ApplyFinality stages in op the finalization of the block and of its
// unfinalized ancestors. It is meant to be called from a function run by
// LockImportAndRun.
func (c *Client) ApplyFinality(op *api.ClientImportOperation, id types.BlockID,
	justification *types.Justification, notify bool) error {
	hash, err := c.expectHash(id)
	if err != nil {
		return err
	}
	best := c.backend.Blockchain().Info().BestHash
	return c.applyFinality(op, hash, justification, best, notify, true)
}

func (c *Client) applyFinality(op *api.ClientImportOperation, hash common.Hash,
	justification *types.Justification, best common.Hash, notify, setHead bool) error {
	bc := c.backend.Blockchain()
	lastFinalized, err := bc.LastFinalized()
	if err != nil {
		return err
	}
	if hash == lastFinalized {
		logger.Warnf("possible safety violation: attempted to re-finalize last finalized block %s", hash)
		return nil
	}

	route, err := blockchain.NewTreeRoute(bc, lastFinalized, hash)
	if err != nil {
		return err
	}
	if retracted := route.Retracted(); len(retracted) > 0 {
		logger.Warnf("safety violation: attempted to revert finalized block #%d (%s) when finalizing %s",
			retracted[len(retracted)-1].Number, retracted[len(retracted)-1].Hash, hash)
		return fmt.Errorf("%w: block %s does not descend from finalized block %s",
			blockchain.ErrNotInFinalizedChain, hash, lastFinalized)
	}

	if setHead {
		bestRoute, err := blockchain.NewTreeRoute(bc, best, hash)
		if err != nil {
			return err
		}
		// the best block is not a descendant of the finalized one
		if bestRoute.CommonBlock().Hash != hash {
			err = op.Op.MarkHead(hash)
			if err != nil {
				return err
			}
		}
	}

	enacted := route.Enacted()
	for _, block := range enacted[:len(enacted)-1] {
		err = op.Op.MarkFinalized(block.Hash, nil)
		if err != nil {
			return err
		}
	}
	err = op.Op.MarkFinalized(hash, justification)
	if err != nil {
		return err
	}

	if !notify {
		return nil
	}
	header, err := blockchain.ExpectHeader(bc, hash)
	if err != nil {
		return err
	}
	summary := op.NotifyFinalized
	if summary == nil {
		summary = &api.FinalizeSummary{}
	}
	for _, block := range enacted {
		summary.Finalized = append(summary.Finalized, block.Hash)
	}
	summary.Finalized = boundFinalized(summary.Finalized, c.options.FinalityNotificationLimit)
	summary.Header = header
	op.NotifyFinalized = summary
	return nil
}

// SetHead makes the block the best block.
func (c *Client) SetHead(id types.BlockID) error {
	return c.LockImportAndRun(func(op *api.ClientImportOperation) error {
		hash, err := c.expectHash(id)
		if err != nil {
			return err
		}
		return op.Op.MarkHead(hash)
	})
}

// Revert reverts up to n unfinalized blocks of the best chain and returns
// the number of blocks reverted.
func (c *Client) Revert(n uint64) (uint64, error) {
	c.importLock.Lock()
	defer c.importLock.Unlock()

	reverted, err := c.backend.Revert(n)
	if err != nil {
		return reverted, err
	}
	c.metrics.setHeights(c.backend.Blockchain().Info())
	return reverted, nil
}
