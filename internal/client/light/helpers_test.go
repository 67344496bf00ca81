// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"testing"
	"time"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/client/executor/testruntime"
	"github.com/ChainSafe/chainstate/internal/client/inmemory"
	"github.com/ChainSafe/chainstate/internal/client/service/client"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/require"
)

const testCHTSize = 4

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

func newGenesisStorage(t *testing.T) storage.Storage {
	t.Helper()
	genesisStorage := storage.NewStorage()
	genesisStorage.Set(common.CodeKey, testruntime.Code(testruntime.DefaultVersion()))
	config, err := types.Encode(types.ChangesTrieConfiguration{})
	require.NoError(t, err)
	genesisStorage.Set(common.ChangesTrieConfigKey, config)
	return genesisStorage
}

// newFullClient returns a full client with changes tries enabled and n
// blocks imported on top of the genesis block.
func newFullClient(t *testing.T, n int) (*client.Client, []*types.Header) {
	t.Helper()
	backend := inmemory.NewBackend(inmemory.BackendOptions{
		Blockchain: inmemory.Options{CHTSize: testCHTSize},
	})
	full, err := client.NewWithGenesis(backend, executor.NewLocalCallExecutor(backend, newCodeExecutor()),
		newGenesisStorage(t), client.Options{CHTSize: testCHTSize})
	require.NoError(t, err)

	headers := make([]*types.Header, n)
	parent := full.Info().GenesisHash
	for i := range headers {
		builder, err := full.NewBlockAt(parent, nil)
		require.NoError(t, err)
		require.NoError(t, builder.Push(testruntime.Set([]byte("height"), []byte{byte(i)})))
		require.NoError(t, builder.Push(testruntime.SetChild([]byte("child"), []byte("height"), []byte{byte(i)})))
		built, err := builder.Bake()
		require.NoError(t, err)

		_, err = full.ImportBlock(consensus.BlockImportParams{
			Origin: consensus.BlockOriginOwn,
			Header: built.Block.Header,
			Body:   built.Block.Body,
		}, nil)
		require.NoError(t, err)

		header := built.Block.Header
		headers[i] = &header
		parent = header.Hash()
	}
	return full, headers
}

type lightClient struct {
	*client.Client
	backend *Backend
	storage *inmemory.Blockchain
	fetcher *FetcherRef
}

// newLightClient returns a light client serving its remote requests with
// full, and the headers imported in it.
func newLightClient(t *testing.T, full *client.Client, headers []*types.Header) *lightClient {
	t.Helper()
	codeExecutor := newCodeExecutor()
	lightStorage := inmemory.NewBlockchain(inmemory.Options{PruneHeaders: true, CHTSize: testCHTSize})
	fetcher := NewFetcherRef(nil)
	backend := NewBackend(lightStorage, fetcher, testCHTSize)
	checker := NewLightDataChecker(lightStorage, codeExecutor, testCHTSize)
	fetcher.Set(NewRetryingFetcher(NewLocalFetcher(full), checker, time.Millisecond))

	callExecutor := NewGenesisCallExecutor(backend,
		executor.NewLocalCallExecutor(backend, codeExecutor),
		NewRemoteCallExecutor(backend.LightBlockchain(), fetcher, codeExecutor))
	c, err := client.NewWithGenesis(backend, callExecutor, newGenesisStorage(t),
		client.Options{CHTSize: testCHTSize})
	require.NoError(t, err)

	for _, header := range headers {
		result, err := c.ImportBlock(consensus.BlockImportParams{
			Origin: consensus.BlockOriginNetworkBroadcast,
			Header: *header,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, consensus.ImportResultImported{HeaderOnly: true, IsNewBest: true}, result)
	}

	return &lightClient{
		Client:  c,
		backend: backend,
		storage: lightStorage,
		fetcher: fetcher,
	}
}

// newPrunedLightClient returns a light client with n blocks imported of
// which the first CHT group is pruned.
func newPrunedLightClient(t *testing.T, n int) (*client.Client, *lightClient, []*types.Header) {
	t.Helper()
	require.GreaterOrEqual(t, n, 2*testCHTSize+1)
	full, headers := newFullClient(t, n)
	light := newLightClient(t, full, headers)

	err := light.FinalizeBlock(types.NewBlockIDFromHash(headers[2*testCHTSize].Hash()), nil, false)
	require.NoError(t, err)
	hash, err := light.storage.Hash(1)
	require.NoError(t, err)
	require.Nil(t, hash)
	return full, light, headers
}

func uintPtr(value uint) *uint { return &value }
