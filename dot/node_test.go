// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"context"
	"testing"
	"time"

	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/dot/types"
	lightpkg "github.com/ChainSafe/chainstate/internal/client/light"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InitNode(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	assert.False(t, NodeInitialized(cfg.Global.BasePath))

	err := InitNode(cfg)
	require.NoError(t, err)
	assert.True(t, NodeInitialized(cfg.Global.BasePath))

	err = InitNode(cfg)
	assert.ErrorIs(t, err, ErrNodeInitialised)

	storage, closeStorage, err := OpenLightStorage(cfg)
	require.NoError(t, err)
	defer closeStorage()
	info := storage.Info()
	assert.Equal(t, uint64(0), info.BestNumber)
	assert.Equal(t, info.GenesisHash, info.FinalizedHash)
}

func Test_NewNode_notInitialised(t *testing.T) {
	t.Parallel()

	_, err := NewNode(context.Background(), newTestConfig(t))
	assert.ErrorIs(t, err, ErrNodeNotInitialised)
}

func Test_devAuthor(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	require.NoError(t, InitNode(cfg))

	storage, closeStorage, err := OpenLightStorage(cfg)
	require.NoError(t, err)
	defer closeStorage()

	full, err := createFullClient(cfg, telemetry.NewNoopMailer(), nil)
	require.NoError(t, err)
	light, err := createLightClient(cfg, storage, full, telemetry.NewNoopMailer(), nil)
	require.NoError(t, err)

	author := &devAuthor{full: full, light: light.client, finalityDepth: 2}
	var headers []*types.Header
	for i := 0; i < 12; i++ {
		header, err := author.authorBlock()
		require.NoError(t, err)
		headers = append(headers, header)
	}

	fullInfo := full.Info()
	lightInfo := light.client.Info()
	assert.Equal(t, uint64(12), fullInfo.BestNumber)
	assert.Equal(t, uint64(10), fullInfo.FinalizedNumber)
	assert.Equal(t, fullInfo.BestHash, lightInfo.BestHash)
	assert.Equal(t, fullInfo.FinalizedHash, lightInfo.FinalizedHash)

	// the first CHT is built and its headers pruned
	hash, err := storage.Hash(1)
	require.NoError(t, err)
	assert.Nil(t, hash)
	chtRoot, err := storage.HeaderCHTRoot(4, 1)
	require.NoError(t, err)
	assert.NotNil(t, chtRoot)

	// the light client reads the remote state
	fetcher, err := light.fetcher.Get()
	require.NoError(t, err)
	values, err := fetcher.Read(context.Background(), lightpkg.RemoteReadRequest{
		Block:  headers[11].Hash(),
		Header: headers[11],
		Keys:   [][]byte{heightKey},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{12, 0, 0, 0, 0, 0, 0, 0}, values[string(heightKey)])

	// a restarted full client authors the blocks the light client holds
	restarted, err := createFullClient(cfg, telemetry.NewNoopMailer(), nil)
	require.NoError(t, err)
	author.full = restarted
	light.fetcher.Set(nil)
	for i := 0; i < 13; i++ {
		header, err := author.authorBlock()
		require.NoError(t, err)
		if i < len(headers) {
			assert.Equal(t, headers[i].Hash(), header.Hash())
		}
	}
	assert.Equal(t, uint64(13), light.client.Info().BestNumber)
	assert.Equal(t, uint64(11), light.client.Info().FinalizedNumber)
}

func Test_Node_Start(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	cfg.Global.PublishMetrics = true
	cfg.Pprof.Enabled = true
	require.NoError(t, InitNode(cfg))

	node, err := NewNode(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = node.Start(ctx)
	require.NoError(t, err)

	storage, closeStorage, err := OpenLightStorage(cfg)
	require.NoError(t, err)
	defer closeStorage()
	assert.Greater(t, storage.Info().BestNumber, uint64(0))
}
