// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"testing"

	"github.com/ChainSafe/chainstate/dot/types"
	blockbuilder "github.com/ChainSafe/chainstate/internal/client/block-builder"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/client/executor/testruntime"
	"github.com/ChainSafe/chainstate/internal/client/inmemory"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/require"
)

func newCodeExecutor() *executor.Executor {
	return executor.NewExecutor(testruntime.New(testruntime.DefaultVersion()),
		func(code []byte) (executor.Runtime, error) {
			runtime, err := testruntime.Load(code)
			if err != nil {
				return nil, err
			}
			return runtime, nil
		}, 0)
}

func newGenesisStorage(t *testing.T, version types.RuntimeVersion, changesTries bool) storage.Storage {
	t.Helper()
	genesisStorage := storage.NewStorage()
	genesisStorage.Set(common.CodeKey, testruntime.Code(version))
	genesisStorage.Set([]byte("genesis"), []byte{1})
	if changesTries {
		config, err := types.Encode(types.ChangesTrieConfiguration{})
		require.NoError(t, err)
		genesisStorage.Set(common.ChangesTrieConfigKey, config)
	}
	return genesisStorage
}

func newTestClient(t *testing.T, options Options, changesTries bool) (*Client, *inmemory.Backend) {
	t.Helper()
	backend := inmemory.NewBackend(inmemory.BackendOptions{})
	callExecutor := executor.NewLocalCallExecutor(backend, newCodeExecutor())
	client, err := NewWithGenesis(backend, callExecutor,
		newGenesisStorage(t, testruntime.DefaultVersion(), changesTries), options)
	require.NoError(t, err)
	return client, backend
}

func buildBlock(t *testing.T, client *Client, parent common.Hash,
	extrinsics ...types.Extrinsic) *blockbuilder.BuiltBlock {
	t.Helper()
	builder, err := client.NewBlockAt(parent, nil)
	require.NoError(t, err)
	for _, extrinsic := range extrinsics {
		require.NoError(t, builder.Push(extrinsic))
	}
	built, err := builder.Bake()
	require.NoError(t, err)
	return built
}

func importParams(built *blockbuilder.BuiltBlock, origin consensus.BlockOrigin) consensus.BlockImportParams {
	return consensus.BlockImportParams{
		Origin: origin,
		Header: built.Block.Header,
		Body:   built.Block.Body,
	}
}

// importBlock builds a block on top of parent and imports it with the
// fork choice given, executing it again.
func importBlock(t *testing.T, client *Client, parent common.Hash, forkChoice consensus.ForkChoiceStrategy,
	extrinsics ...types.Extrinsic) common.Hash {
	t.Helper()
	built := buildBlock(t, client, parent, extrinsics...)
	params := importParams(built, consensus.BlockOriginOwn)
	params.ForkChoice = forkChoice
	result, err := client.ImportBlock(params, nil)
	require.NoError(t, err)
	require.IsType(t, consensus.ImportResultImported{}, result)
	return built.Block.Header.Hash()
}

// importChain imports n blocks on top of parent, each becoming the best
// block, and returns their hashes.
func importChain(t *testing.T, client *Client, parent common.Hash, n int) []common.Hash {
	t.Helper()
	hashes := make([]common.Hash, n)
	for i := range hashes {
		parent = importBlock(t, client, parent, nil, testruntime.Set([]byte("height"), []byte{byte(i)}))
		hashes[i] = parent
	}
	return hashes
}
