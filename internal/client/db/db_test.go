// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"errors"
	"testing"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/db/columns"
	"github.com/ChainSafe/chainstate/internal/client/db/metakeys"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ blockchain.HeaderBackend  = (*LightStorage)(nil)
	_ blockchain.HeaderMetadata = (*LightStorage)(nil)
)

func newTestDatabase(t *testing.T) chaindb.Database {
	t.Helper()
	db, err := NewDatabase(t.TempDir(), true)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newTestHeader(parent common.Hash, number uint64, salt byte) *types.Header {
	return &types.Header{
		ParentHash: parent,
		Number:     number,
		Digest:     types.Digest{types.OtherDigest{salt}},
	}
}

func newTestStorage(t *testing.T, db chaindb.Database, options Options) (*LightStorage, *types.Header) {
	t.Helper()
	storage, err := NewLightStorage(db, options)
	require.NoError(t, err)
	genesis := newTestHeader(common.Hash{}, 0, 0)
	err = storage.ImportHeader(genesis, nil, api.NewBlockStateFinal, nil)
	require.NoError(t, err)
	return storage, genesis
}

func importChain(t *testing.T, storage *LightStorage, parent *types.Header, count int, salt byte) []*types.Header {
	t.Helper()
	headers := make([]*types.Header, 0, count)
	for i := 0; i < count; i++ {
		header := newTestHeader(parent.Hash(), parent.Number+1, salt)
		err := storage.ImportHeader(header, nil, api.NewBlockStateBest, nil)
		require.NoError(t, err)
		headers = append(headers, header)
		parent = header
	}
	return headers
}

func Test_newNumberIndexKey(t *testing.T) {
	t.Parallel()

	key, err := newNumberIndexKey(0x01020304)
	require.NoError(t, err)
	assert.Equal(t, numberIndexKey{1, 2, 3, 4}, key)

	_, err = newNumberIndexKey(1 << 32)
	assert.ErrorIs(t, err, blockchain.ErrBackend)
}

func Test_LightStorage_importHeaders(t *testing.T) {
	t.Parallel()

	storage, genesis := newTestStorage(t, newTestDatabase(t), Options{})
	chain := importChain(t, storage, genesis, 3, 0)

	info := storage.Info()
	assert.Equal(t, blockchain.Info{
		BestHash:        chain[2].Hash(),
		BestNumber:      3,
		GenesisHash:     genesis.Hash(),
		FinalizedHash:   genesis.Hash(),
		FinalizedNumber: 0,
		NumberLeaves:    1,
	}, info)

	for i, expected := range chain {
		hash, err := storage.Hash(uint64(i + 1))
		require.NoError(t, err)
		require.NotNil(t, hash)
		assert.Equal(t, expected.Hash(), *hash)

		header, err := storage.Header(expected.Hash())
		require.NoError(t, err)
		assert.Equal(t, expected, header)

		number, err := storage.Number(expected.Hash())
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), *number)
	}

	children, err := storage.Children(chain[0].Hash())
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{chain[1].Hash()}, children)

	status, err := storage.Status(types.NewBlockIDFromNumber(4))
	require.NoError(t, err)
	assert.Equal(t, blockchain.BlockStatusUnknown, status)

	orphan := newTestHeader(common.Hash{1}, 5, 0)
	err = storage.ImportHeader(orphan, nil, api.NewBlockStateBest, nil)
	assert.ErrorIs(t, err, blockchain.ErrUnknownBlock)
}

func Test_LightStorage_reopen(t *testing.T) {
	t.Parallel()

	path := t.TempDir()
	db, err := NewDatabase(path, false)
	require.NoError(t, err)

	storage, genesis := newTestStorage(t, db, Options{})
	chain := importChain(t, storage, genesis, 2, 0)
	fork := importChain(t, storage, chain[0], 1, 1)
	require.NoError(t, storage.SetHead(chain[1].Hash()))
	require.NoError(t, storage.FinalizeHeader(chain[0].Hash()))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path, false)
	require.NoError(t, err)
	defer db.Close()
	reopened, err := NewLightStorage(db, Options{})
	require.NoError(t, err)

	assert.Equal(t, storage.Info(), reopened.Info())
	leaves, err := reopened.Leaves()
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.Hash{chain[1].Hash(), fork[0].Hash()}, leaves)
}

func Test_LightStorage_wrongType(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t)
	err := db.Put(columns.Meta.Key(metakeys.Type), []byte("full"))
	require.NoError(t, err)

	_, err = NewLightStorage(db, Options{})
	assert.ErrorIs(t, err, blockchain.ErrBackend)
}

func Test_LightStorage_forkAndFinalize(t *testing.T) {
	t.Parallel()

	storage, genesis := newTestStorage(t, newTestDatabase(t), Options{})
	a := importChain(t, storage, genesis, 1, 0)[0]
	b1 := importChain(t, storage, a, 1, 1)[0]
	b2 := importChain(t, storage, a, 1, 2)[0]

	assert.Equal(t, b2.Hash(), storage.Info().BestHash)
	hash, err := storage.Hash(2)
	require.NoError(t, err)
	assert.Equal(t, b2.Hash(), *hash)

	err = storage.FinalizeHeader(b1.Hash())
	assert.ErrorIs(t, err, blockchain.ErrNonSequentialFinalization)

	require.NoError(t, storage.FinalizeHeader(a.Hash()))
	require.NoError(t, storage.FinalizeHeader(b1.Hash()))
	require.NoError(t, storage.FinalizeHeader(b1.Hash()))

	info := storage.Info()
	assert.Equal(t, b1.Hash(), info.BestHash)
	assert.Equal(t, b1.Hash(), info.FinalizedHash)
	leaves, err := storage.Leaves()
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{b1.Hash()}, leaves)
	hash, err = storage.Hash(2)
	require.NoError(t, err)
	assert.Equal(t, b1.Hash(), *hash)

	lastFinalized, err := storage.LastFinalized()
	require.NoError(t, err)
	assert.Equal(t, b1.Hash(), lastFinalized)
}

func Test_LightStorage_CHT(t *testing.T) {
	t.Parallel()

	const chtSize = 4
	storage, genesis := newTestStorage(t, newTestDatabase(t), Options{CHTSize: chtSize})
	chain := importChain(t, storage, genesis, 3*chtSize, 0)

	expectedRoot, err := cht.ComputeRoot(chtSize, 0, func(number uint64) (*common.Hash, error) {
		hash := chain[number-1].Hash()
		return &hash, nil
	})
	require.NoError(t, err)

	for _, header := range chain[:2*chtSize+1] {
		require.NoError(t, storage.FinalizeHeader(header.Hash()))
	}

	root, err := storage.HeaderCHTRoot(chtSize, chtSize)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, expectedRoot, *root)

	root, err = storage.HeaderCHTRoot(chtSize, chtSize+1)
	require.NoError(t, err)
	assert.Nil(t, root)

	root, err = storage.ChangesTrieCHTRoot(chtSize, 1)
	require.NoError(t, err)
	assert.Nil(t, root)

	for _, header := range chain[:chtSize] {
		stored, err := storage.Header(header.Hash())
		require.NoError(t, err)
		assert.Nil(t, stored)
		hash, err := storage.Hash(header.Number)
		require.NoError(t, err)
		assert.Nil(t, hash)
	}
	stored, err := storage.Header(chain[chtSize].Hash())
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func Test_LightStorage_changesTrieCHT(t *testing.T) {
	t.Parallel()

	const chtSize = 2
	storage, genesis := newTestStorage(t, newTestDatabase(t), Options{CHTSize: chtSize})

	parent := genesis
	roots := make([]*common.Hash, 0, chtSize)
	for i := 0; i < 3*chtSize; i++ {
		root := common.Hash{byte(i + 1)}
		header := &types.Header{
			ParentHash: parent.Hash(),
			Number:     parent.Number + 1,
			Digest:     types.Digest{types.ChangesTrieRootDigest{Hash: root}},
		}
		require.NoError(t, storage.ImportHeader(header, nil, api.NewBlockStateFinal, nil))
		if i < chtSize {
			roots = append(roots, &root)
		}
		parent = header
	}

	expectedRoot, err := cht.ComputeRootFromOptional(chtSize, 0, roots)
	require.NoError(t, err)
	root, err := storage.ChangesTrieCHTRoot(chtSize, 1)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, expectedRoot, *root)
}

func Test_LightStorage_auxAndCache(t *testing.T) {
	t.Parallel()

	storage, genesis := newTestStorage(t, newTestDatabase(t), Options{})
	a := newTestHeader(genesis.Hash(), 1, 0)
	err := storage.ImportHeader(a, map[string][]byte{"authorities": {7}}, api.NewBlockStateBest,
		api.AuxDataOperations{{Key: []byte("aux"), Data: []byte{1}}})
	require.NoError(t, err)
	b := importChain(t, storage, a, 1, 0)[0]

	value, err := storage.GetAux([]byte("aux"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)

	require.NoError(t, storage.InsertAux(api.AuxDataOperations{{Key: []byte("aux")}}))
	value, err = storage.GetAux([]byte("aux"))
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = storage.Cache().GetAt([]byte("authorities"), b.Hash())
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, value)
	value, err = storage.Cache().GetAt([]byte("authorities"), genesis.Hash())
	require.NoError(t, err)
	assert.Nil(t, value)
}

// flushFailingDB fails the batch flushes while failFlush is set.
type flushFailingDB struct {
	chaindb.Database
	failFlush bool
}

func (db *flushFailingDB) NewBatch() chaindb.Batch {
	return &flushFailingBatch{Batch: db.Database.NewBatch(), db: db}
}

type flushFailingBatch struct {
	chaindb.Batch
	db *flushFailingDB
}

func (b *flushFailingBatch) Flush() error {
	if b.db.failFlush {
		return errors.New("disk full")
	}
	return b.Batch.Flush()
}

func Test_LightStorage_ImportHeader_flushFailure(t *testing.T) {
	t.Parallel()

	db := &flushFailingDB{Database: newTestDatabase(t)}
	storage, genesis := newTestStorage(t, db, Options{})
	infoBefore := storage.Info()

	db.failFlush = true
	header := newTestHeader(genesis.Hash(), 1, 0)
	err := storage.ImportHeader(header, nil, api.NewBlockStateFinal, nil)
	assert.ErrorIs(t, err, blockchain.ErrBackend)

	cached, err := storage.Header(header.Hash())
	require.NoError(t, err)
	assert.Nil(t, cached)
	status, err := storage.Status(types.NewBlockIDFromHash(header.Hash()))
	require.NoError(t, err)
	assert.Equal(t, blockchain.BlockStatusUnknown, status)
	assert.Equal(t, infoBefore, storage.Info())
	leaves, err := storage.Leaves()
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{genesis.Hash()}, leaves)

	db.failFlush = false
	err = storage.ImportHeader(header, nil, api.NewBlockStateFinal, nil)
	require.NoError(t, err)
	assert.Equal(t, header.Hash(), storage.Info().FinalizedHash)
}
