// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/client/executor/testruntime"
	"github.com/ChainSafe/chainstate/internal/client/service/client"
)

// heightKey holds the number of the last authored block.
var heightKey = []byte("height")

// devAuthor authors the blocks of the development chain on the full
// client, and follows them with the light client. Blocks are finalized
// once finalityDepth blocks are built on top of them.
type devAuthor struct {
	full          *client.Client
	light         *client.Client
	finalityDepth uint64
}

// run authors a block every blockTime until ctx is done.
func (a *devAuthor) run(ctx context.Context, blockTime time.Duration) error {
	ticker := time.NewTicker(blockTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		header, err := a.authorBlock()
		if err != nil {
			return err
		}
		logger.Infof("authored block #%d (%s)", header.Number, header.Hash())
	}
}

// authorBlock builds a block on the best block of the full client and
// imports it in both clients.
func (a *devAuthor) authorBlock() (*types.Header, error) {
	best := a.full.Info()
	builder, err := a.full.NewBlockAt(best.BestHash, nil)
	if err != nil {
		return nil, fmt.Errorf("starting block on %s: %w", best.BestHash, err)
	}

	height := make([]byte, 8)
	binary.LittleEndian.PutUint64(height, best.BestNumber+1)
	err = builder.Push(testruntime.Set(heightKey, height))
	if err != nil {
		return nil, fmt.Errorf("pushing extrinsic: %w", err)
	}

	built, err := builder.Bake()
	if err != nil {
		return nil, fmt.Errorf("baking block: %w", err)
	}

	result, err := a.full.ImportBlock(consensus.BlockImportParams{
		Origin:         consensus.BlockOriginOwn,
		Header:         built.Block.Header,
		Body:           built.Block.Body,
		StorageChanges: &built.StorageChanges,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("importing authored block: %w", err)
	}
	if _, ok := result.(consensus.ImportResultImported); !ok {
		return nil, fmt.Errorf("importing authored block: unexpected result %T", result)
	}

	header := built.Block.Header
	if header.Number > a.finalityDepth {
		id := types.NewBlockIDFromNumber(header.Number - a.finalityDepth)
		err = a.full.FinalizeBlock(id, nil, true)
		if err != nil {
			return nil, fmt.Errorf("finalizing full client block: %w", err)
		}
	}

	if a.light != nil {
		err = a.follow(&header)
		if err != nil {
			return nil, err
		}
	}
	return &header, nil
}

// follow imports the header in the light client. Headers the light client
// already holds from a previous run are skipped, the development chain
// being deterministic.
func (a *devAuthor) follow(header *types.Header) error {
	info := a.light.Info()
	if header.Number <= info.BestNumber {
		return nil
	}

	result, err := a.light.ImportBlock(consensus.BlockImportParams{
		Origin: consensus.BlockOriginNetworkBroadcast,
		Header: *header,
	}, nil)
	if err != nil {
		return fmt.Errorf("importing header in light client: %w", err)
	}
	switch result.(type) {
	case consensus.ImportResultImported, consensus.ImportResultAlreadyInChain:
	default:
		return fmt.Errorf("importing header in light client: unexpected result %T", result)
	}

	if header.Number <= a.finalityDepth {
		return nil
	}
	finalized := header.Number - a.finalityDepth
	if finalized <= info.FinalizedNumber {
		return nil
	}
	err = a.light.FinalizeBlock(types.NewBlockIDFromNumber(finalized), nil, true)
	if err != nil {
		return fmt.Errorf("finalizing light client block: %w", err)
	}
	return nil
}
