// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"testing"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/db"
	"github.com/ChainSafe/chainstate/internal/client/inmemory"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInMemoryStorage(t *testing.T) Storage {
	t.Helper()
	return inmemory.NewBlockchain(inmemory.Options{CHTSize: testCHTSize})
}

func newDBStorage(t *testing.T) Storage {
	t.Helper()
	database, err := db.NewDatabase(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})
	storage, err := db.NewLightStorage(database, db.Options{CHTSize: testCHTSize})
	require.NoError(t, err)
	return storage
}

func newHeader(parent common.Hash, number uint64, salt byte) *types.Header {
	return &types.Header{
		ParentHash: parent,
		Number:     number,
		Digest:     types.Digest{types.OtherDigest{salt}},
	}
}

func commitHeader(t *testing.T, backend *Backend, header *types.Header, state api.NewBlockState) {
	t.Helper()
	op, err := backend.BeginOperation()
	require.NoError(t, err)
	require.NoError(t, op.SetBlockData(header, nil, nil, state))
	require.NoError(t, backend.CommitOperation(op))
}

func Test_Backend_CommitOperation_invalid(t *testing.T) {
	t.Parallel()

	storages := map[string]func(t *testing.T) Storage{
		"inmemory": newInMemoryStorage,
		"db":       newDBStorage,
	}

	genesis := newHeader(common.Hash{}, 0, 0)
	blockA := newHeader(genesis.Hash(), 1, 0)
	blockB := newHeader(blockA.Hash(), 2, 0)
	orphan := newHeader(common.Hash{9}, 5, 0)

	testCases := map[string]struct {
		stage       func(t *testing.T, op api.BlockImportOperation)
		errSentinel error
	}{
		"finalize_with_orphan_header": {
			stage: func(t *testing.T, op api.BlockImportOperation) {
				require.NoError(t, op.MarkFinalized(blockA.Hash(), nil))
				require.NoError(t, op.SetBlockData(orphan, nil, nil, api.NewBlockStateNormal))
			},
			errSentinel: blockchain.ErrUnknownBlock,
		},
		"finalize_with_unknown_head": {
			stage: func(t *testing.T, op api.BlockImportOperation) {
				require.NoError(t, op.MarkFinalized(blockA.Hash(), nil))
				require.NoError(t, op.MarkHead(common.Hash{9}))
			},
			errSentinel: blockchain.ErrUnknownBlock,
		},
		"finalize_unknown_block": {
			stage: func(t *testing.T, op api.BlockImportOperation) {
				require.NoError(t, op.MarkFinalized(blockA.Hash(), nil))
				require.NoError(t, op.MarkFinalized(common.Hash{9}, nil))
			},
			errSentinel: blockchain.ErrUnknownBlock,
		},
		"finalize_skipping_block": {
			stage: func(t *testing.T, op api.BlockImportOperation) {
				require.NoError(t, op.MarkFinalized(blockB.Hash(), nil))
			},
			errSentinel: blockchain.ErrNonSequentialFinalization,
		},
	}

	for storageName, newStorage := range storages {
		newStorage := newStorage
		for name, testCase := range testCases {
			testCase := testCase
			t.Run(storageName+"_"+name, func(t *testing.T) {
				t.Parallel()

				storage := newStorage(t)
				backend := NewBackend(storage, NewFetcherRef(nil), testCHTSize)
				commitHeader(t, backend, genesis, api.NewBlockStateFinal)
				commitHeader(t, backend, blockA, api.NewBlockStateBest)
				commitHeader(t, backend, blockB, api.NewBlockStateBest)
				infoBefore := storage.Info()

				op, err := backend.BeginOperation()
				require.NoError(t, err)
				testCase.stage(t, op)
				err = backend.CommitOperation(op)
				assert.ErrorIs(t, err, testCase.errSentinel)

				assert.Equal(t, infoBefore, storage.Info())
				assert.Equal(t, genesis.Hash(), storage.Info().FinalizedHash)
				status, err := storage.Status(types.NewBlockIDFromHash(orphan.Hash()))
				require.NoError(t, err)
				assert.Equal(t, blockchain.BlockStatusUnknown, status)
			})
		}
	}
}

func Test_Backend_CommitOperation_finalizeAndImport(t *testing.T) {
	t.Parallel()

	storages := map[string]func(t *testing.T) Storage{
		"inmemory": newInMemoryStorage,
		"db":       newDBStorage,
	}

	for name, newStorage := range storages {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			storage := newStorage(t)
			backend := NewBackend(storage, NewFetcherRef(nil), testCHTSize)
			genesis := newHeader(common.Hash{}, 0, 0)
			blockA := newHeader(genesis.Hash(), 1, 0)
			blockB := newHeader(blockA.Hash(), 2, 0)
			commitHeader(t, backend, genesis, api.NewBlockStateFinal)
			commitHeader(t, backend, blockA, api.NewBlockStateBest)

			op, err := backend.BeginOperation()
			require.NoError(t, err)
			require.NoError(t, op.MarkFinalized(genesis.Hash(), nil))
			require.NoError(t, op.MarkFinalized(blockA.Hash(), nil))
			require.NoError(t, op.SetBlockData(blockB, nil, nil, api.NewBlockStateNormal))
			require.NoError(t, op.MarkHead(blockB.Hash()))
			require.NoError(t, backend.CommitOperation(op))

			info := storage.Info()
			assert.Equal(t, blockA.Hash(), info.FinalizedHash)
			assert.Equal(t, blockB.Hash(), info.BestHash)
		})
	}
}
