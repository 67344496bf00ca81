// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/db/columns"
	"github.com/ChainSafe/chainstate/internal/client/db/metakeys"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "db"))

const (
	headerCHTPrefix      byte = 0
	changesTrieCHTPrefix byte = 1
)

// NewDatabase opens the badger database at path.
func NewDatabase(path string, inMemory bool) (chaindb.Database, error) {
	db, err := chaindb.NewBadgerDB(&chaindb.Config{
		DataDir:  path,
		InMemory: inMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	return db, nil
}

// Options configures a LightStorage.
type Options struct {
	// CHTSize is the number of blocks covered by a CHT, cht.Size if zero.
	CHTSize uint64
	// HeaderCacheSize is the capacity of the header cache.
	HeaderCacheSize int
	// HeaderMetadataCacheSize is the capacity of the header metadata cache.
	HeaderMetadataCacheSize uint32
}

// LightStorage is the persistent storage of a light client. It keeps
// headers, replacing the headers of ancient finalized blocks by CHT roots.
type LightStorage struct {
	db      chaindb.Database
	chtSize uint64

	mtx            sync.RWMutex
	meta           meta
	leaves         *api.LeafSet[common.Hash, uint64]
	headers        headerCache
	headerMetadata *blockchain.HeaderMetadataCache
}

// NewLightStorage opens the light storage held by db, restoring its meta
// data and leaf set.
func NewLightStorage(db chaindb.Database, options Options) (*LightStorage, error) {
	chtSize := options.CHTSize
	if chtSize == 0 {
		chtSize = cht.Size
	}

	storageType, err := get(db, columns.Meta, metakeys.Type)
	if err != nil {
		return nil, err
	}
	switch {
	case storageType == nil:
		err = db.Put(columns.Meta.Key(metakeys.Type), metakeys.LightType)
		if err != nil {
			return nil, fmt.Errorf("%w: writing storage type: %w", blockchain.ErrBackend, err)
		}
	case !bytes.Equal(storageType, metakeys.LightType):
		return nil, fmt.Errorf("%w: database holds a %q storage", blockchain.ErrBackend, storageType)
	}

	dbMeta, err := readMeta(db)
	if err != nil {
		return nil, err
	}
	leaves, err := api.NewLeafSetFromDB[common.Hash, uint64](db, columns.Meta.Key(metakeys.LeafPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}

	return &LightStorage{
		db:             db,
		chtSize:        chtSize,
		meta:           dbMeta,
		leaves:         leaves,
		headers:        newHeaderCache(options.HeaderCacheSize),
		headerMetadata: blockchain.NewHeaderMetadataCache(options.HeaderMetadataCacheSize),
	}, nil
}

// Header implements blockchain.HeaderBackend.
func (s *LightStorage) Header(hash common.Hash) (*types.Header, error) {
	if header, ok := s.headers.get(hash); ok {
		return header, nil
	}
	header, err := readHeader(s.db, types.NewBlockIDFromHash(hash))
	if err != nil || header == nil {
		return nil, err
	}
	s.headers.insert(hash, header)
	return header, nil
}

// Info implements blockchain.HeaderBackend.
func (s *LightStorage) Info() blockchain.Info {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return blockchain.Info{
		BestHash:        s.meta.BestHash,
		BestNumber:      s.meta.BestNumber,
		GenesisHash:     s.meta.GenesisHash,
		FinalizedHash:   s.meta.FinalizedHash,
		FinalizedNumber: s.meta.FinalizedNumber,
		NumberLeaves:    int(s.leaves.Count()),
	}
}

// Status implements blockchain.HeaderBackend.
func (s *LightStorage) Status(id types.BlockID) (blockchain.BlockStatus, error) {
	key, err := blockIDToLookupKey(s.db, id)
	if err != nil {
		return blockchain.BlockStatusUnknown, err
	}
	if key == nil {
		return blockchain.BlockStatusUnknown, nil
	}
	return blockchain.BlockStatusInChain, nil
}

// Number implements blockchain.HeaderBackend.
func (s *LightStorage) Number(hash common.Hash) (*uint64, error) {
	header, err := s.Header(hash)
	if err != nil || header == nil {
		return nil, err
	}
	number := header.Number
	return &number, nil
}

// Hash implements blockchain.HeaderBackend.
func (s *LightStorage) Hash(number uint64) (*common.Hash, error) {
	key, err := blockIDToLookupKey(s.db, types.NewBlockIDFromNumber(number))
	if err != nil || key == nil {
		return nil, err
	}
	hash, err := lookupKeyToHash(key)
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

// HeaderMetadata implements blockchain.HeaderMetadata.
func (s *LightStorage) HeaderMetadata(hash common.Hash) (blockchain.CachedHeaderMetadata, error) {
	if metadata, ok := s.headerMetadata.HeaderMetadata(hash); ok {
		return metadata, nil
	}
	header, err := s.Header(hash)
	if err != nil {
		return blockchain.CachedHeaderMetadata{}, err
	}
	if header == nil {
		return blockchain.CachedHeaderMetadata{}, blockchain.UnknownBlockError("header not found in db: %s", hash)
	}
	metadata := blockchain.NewCachedHeaderMetadata(header)
	s.headerMetadata.InsertHeaderMetadata(hash, metadata)
	return metadata, nil
}

// InsertHeaderMetadata implements blockchain.HeaderMetadata.
func (s *LightStorage) InsertHeaderMetadata(hash common.Hash, metadata blockchain.CachedHeaderMetadata) {
	s.headerMetadata.InsertHeaderMetadata(hash, metadata)
}

// RemoveHeaderMetadata implements blockchain.HeaderMetadata.
func (s *LightStorage) RemoveHeaderMetadata(hash common.Hash) {
	s.headers.remove(hash)
	s.headerMetadata.RemoveHeaderMetadata(hash)
}

// Leaves returns the hashes of the blocks without children, best first.
func (s *LightStorage) Leaves() ([]common.Hash, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.leaves.Hashes(), nil
}

// Children returns the hashes of the children of parent.
func (s *LightStorage) Children(parent common.Hash) ([]common.Hash, error) {
	return readChildren(s.db, parent)
}

// LastFinalized returns the hash of the last finalized block.
func (s *LightStorage) LastFinalized() (common.Hash, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.meta.FinalizedHash, nil
}

// ImportHeader stores the header with the cache entries recorded at it,
// and applies the aux operations, in one batch.
func (s *LightStorage) ImportHeader(header *types.Header, cache map[string][]byte,
	state api.NewBlockState, aux api.AuxDataOperations) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := header.Hash()
	number := header.Number
	lookupKey, err := newLookupKey(number, hash)
	if err != nil {
		return err
	}

	status, err := s.Status(types.NewBlockIDFromHash(hash))
	if err != nil {
		return err
	}
	known := status == blockchain.BlockStatusInChain

	if number > 0 && !known {
		parentStatus, err := s.Status(types.NewBlockIDFromHash(header.ParentHash))
		if err != nil {
			return err
		}
		if parentStatus != blockchain.BlockStatusInChain {
			return blockchain.UnknownBlockError("parent %s of header %s", header.ParentHash, hash)
		}
	}

	batch := s.db.NewBatch()
	defer batch.Reset()
	newMeta := s.meta

	encoded, err := types.Encode(*header)
	if err != nil {
		return fmt.Errorf("%w: encoding header: %w", blockchain.ErrBackend, err)
	}
	err = batch.Put(columns.Header.Key(lookupKey), encoded)
	if err == nil {
		err = batch.Put(columns.KeyLookup.Key(hash[:]), lookupKey)
	}
	if err == nil && number == 0 {
		err = batch.Put(columns.Meta.Key(metakeys.GenesisHash), hash[:])
		newMeta.GenesisHash = hash
	}
	if err != nil {
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}

	if state.IsBest() {
		err = s.setHeadBatch(batch, &newMeta, hash, header)
		if err != nil {
			return err
		}
	}

	if number > 0 {
		children, err := readChildren(s.db, header.ParentHash)
		if err != nil {
			return err
		}
		if !slices.Contains(children, hash) {
			err = writeChildren(batch, header.ParentHash, append(children, hash))
			if err != nil {
				return err
			}
		}
	}

	for key, value := range cache {
		err = batch.Put(columns.Cache.Key(cacheKey(hash, []byte(key))), value)
		if err != nil {
			return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
		}
	}
	err = writeAux(batch, aux)
	if err != nil {
		return err
	}

	// the header must be readable to build CHTs covering it
	s.headers.insert(hash, header)

	var leafOutcome *api.ImportOutcome[common.Hash, uint64]
	if !known {
		outcome := s.leaves.Import(hash, number, header.ParentHash)
		leafOutcome = &outcome
	}
	undoImport := func() {
		s.headers.remove(hash)
		if leafOutcome != nil {
			s.leaves.Undo().UndoImport(*leafOutcome)
		}
	}

	var finalization *leafFinalization
	if state.IsFinal() {
		finalization, err = s.noteFinalized(batch, &newMeta, hash, header)
		if err != nil {
			undoImport()
			return err
		}
	}

	err = s.commit(batch, finalization)
	if err != nil {
		undoImport()
		return err
	}

	s.meta = newMeta
	s.headerMetadata.InsertHeaderMetadata(hash, blockchain.NewCachedHeaderMetadata(header))
	logger.Debugf("imported header #%d %s as %s", number, hash, state)
	return nil
}

// commit writes the leaf set and flushes the batch. The finalization is
// undone if flushing fails.
func (s *LightStorage) commit(batch chaindb.Batch, finalization *leafFinalization) error {
	err := s.leaves.PrepareTransaction(batch, columns.Meta.Key(metakeys.LeafPrefix))
	if err == nil {
		err = batch.Flush()
	}
	if err != nil {
		finalization.undo(s.leaves)
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}
	return nil
}

// setHeadBatch moves the canonical chain to the block, removing the number
// index entries of retracted blocks. It must be called with the lock held.
func (s *LightStorage) setHeadBatch(batch chaindb.Batch, newMeta *meta, hash common.Hash,
	header *types.Header) error {
	if header.Number > 0 && newMeta.BestHash != header.ParentHash && newMeta.BestHash != hash {
		route, err := blockchain.NewTreeRoute(s, newMeta.BestHash, header.ParentHash)
		if err != nil {
			return fmt.Errorf("computing tree route to new head: %w", err)
		}
		// retracted entries are either overwritten below or above the new
		// best number
		for _, enacted := range route.Enacted() {
			err = putNumberIndex(batch, enacted.Number, enacted.Hash)
			if err != nil {
				return err
			}
		}
	}
	for number := header.Number + 1; number <= newMeta.BestNumber; number++ {
		err := deleteNumberIndex(batch, number)
		if err != nil {
			return err
		}
	}

	err := putNumberIndex(batch, header.Number, hash)
	if err != nil {
		return err
	}
	lookupKey, err := newLookupKey(header.Number, hash)
	if err != nil {
		return err
	}
	err = batch.Put(columns.Meta.Key(metakeys.BestBlock), lookupKey)
	if err != nil {
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}
	newMeta.BestHash = hash
	newMeta.BestNumber = header.Number
	return nil
}

func putNumberIndex(batch chaindb.Batch, number uint64, hash common.Hash) error {
	index, err := newNumberIndexKey(number)
	if err != nil {
		return err
	}
	lookupKey, err := newLookupKey(number, hash)
	if err != nil {
		return err
	}
	return batch.Put(columns.KeyLookup.Key(index[:]), lookupKey)
}

func deleteNumberIndex(batch chaindb.Batch, number uint64) error {
	index, err := newNumberIndexKey(number)
	if err != nil {
		return err
	}
	return batch.Del(columns.KeyLookup.Key(index[:]))
}

// SetHead makes the block the best block.
func (s *LightStorage) SetHead(hash common.Hash) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	header, err := s.Header(hash)
	if err != nil {
		return err
	}
	if header == nil {
		return blockchain.UnknownBlockError("set head: %s", hash)
	}

	batch := s.db.NewBatch()
	defer batch.Reset()
	newMeta := s.meta
	err = s.setHeadBatch(batch, &newMeta, hash, header)
	if err != nil {
		return err
	}
	err = batch.Flush()
	if err != nil {
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}
	s.meta = newMeta
	return nil
}

// FinalizeHeader finalizes the block, which must be a child of the last
// finalized block.
func (s *LightStorage) FinalizeHeader(hash common.Hash) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if hash == s.meta.FinalizedHash {
		return nil
	}
	header, err := s.Header(hash)
	if err != nil {
		return err
	}
	if header == nil {
		return blockchain.UnknownBlockError("finalize header: %s", hash)
	}
	if header.ParentHash != s.meta.FinalizedHash {
		return fmt.Errorf("%w: last finalized %s not parent of %s",
			blockchain.ErrNonSequentialFinalization, s.meta.FinalizedHash, hash)
	}

	batch := s.db.NewBatch()
	defer batch.Reset()
	newMeta := s.meta
	finalization, err := s.noteFinalized(batch, &newMeta, hash, header)
	if err != nil {
		return err
	}
	err = s.commit(batch, finalization)
	if err != nil {
		return err
	}
	s.meta = newMeta
	return nil
}

// leafFinalization records the leaves removed by a finalization so they
// can be restored if the batch is not written.
type leafFinalization struct {
	outcome api.FinalizationOutcome[common.Hash, uint64]
	removed []*api.RemoveOutcome[common.Hash, uint64]
}

func (f *leafFinalization) undo(leaves *api.LeafSet[common.Hash, uint64]) {
	if f == nil {
		return
	}
	for i := len(f.removed) - 1; i >= 0; i-- {
		leaves.Undo().UndoRemove(*f.removed[i])
	}
	leaves.Undo().UndoFinalization(f.outcome)
}

// noteFinalized stages the finalization of the block: the meta pointer,
// the leaf set, and the CHTs which became buildable with the headers they
// replace. It must be called with the lock held.
func (s *LightStorage) noteFinalized(batch chaindb.Batch, newMeta *meta, hash common.Hash,
	header *types.Header) (*leafFinalization, error) {
	lookupKey, err := newLookupKey(header.Number, hash)
	if err != nil {
		return nil, err
	}
	err = batch.Put(columns.Meta.Key(metakeys.FinalizedBlock), lookupKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}

	if !s.descendsFrom(newMeta.BestHash, hash, header.Number) {
		err = s.setHeadBatch(batch, newMeta, hash, header)
		if err != nil {
			return nil, err
		}
	}
	newMeta.FinalizedHash = hash
	newMeta.FinalizedNumber = header.Number

	finalization := &leafFinalization{outcome: s.leaves.FinalizeHeight(header.Number)}
	for _, leaf := range s.leaves.Items() {
		if leaf.Number < header.Number || leaf.Hash == hash || s.descendsFrom(leaf.Hash, hash, header.Number) {
			continue
		}
		removed := s.leaves.Remove(leaf.Hash, leaf.Number, nil)
		if removed != nil {
			finalization.removed = append(finalization.removed, removed)
		}
	}

	chtNumber, ok := cht.IsBuildRequired(s.chtSize, header.Number)
	if !ok {
		return finalization, nil
	}
	err = s.buildCHT(batch, chtNumber)
	if err != nil {
		finalization.undo(s.leaves)
		return nil, err
	}
	return finalization, nil
}

func (s *LightStorage) descendsFrom(hash, ancestor common.Hash, ancestorNumber uint64) bool {
	for {
		if hash == ancestor {
			return true
		}
		metadata, err := s.HeaderMetadata(hash)
		if err != nil || metadata.Number <= ancestorNumber {
			return false
		}
		hash = metadata.Parent
	}
}

// buildCHT stages the CHTs of the group and the pruning of its headers.
func (s *LightStorage) buildCHT(batch chaindb.Batch, chtNumber uint64) error {
	start := cht.StartNumber(s.chtSize, chtNumber)
	end := cht.EndNumber(s.chtSize, chtNumber)

	headerRoot, err := cht.ComputeRoot(s.chtSize, chtNumber, s.Hash)
	if err != nil {
		return fmt.Errorf("building header CHT %d: %w", chtNumber, err)
	}
	index, err := newNumberIndexKey(start)
	if err != nil {
		return err
	}
	err = batch.Put(columns.CHT.Key(chtKey(headerCHTPrefix, index)), headerRoot[:])
	if err != nil {
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}

	hashes := make([]common.Hash, 0, s.chtSize)
	changesTrieRoots := make([]*common.Hash, 0, s.chtSize)
	for number := start; number <= end; number++ {
		header, err := readHeader(s.db, types.NewBlockIDFromNumber(number))
		if err != nil {
			return err
		}
		if header == nil {
			return blockchain.MissingHashRequiredForCHTError(chtNumber, number)
		}
		hashes = append(hashes, header.Hash())
		if root, ok := header.ChangesTrieRoot(); ok && changesTrieRoots != nil {
			changesTrieRoots = append(changesTrieRoots, &root)
		} else {
			changesTrieRoots = nil
		}
	}
	if changesTrieRoots != nil {
		changesTrieRoot, err := cht.ComputeRootFromOptional(s.chtSize, chtNumber, changesTrieRoots)
		if err != nil {
			return fmt.Errorf("building changes trie CHT %d: %w", chtNumber, err)
		}
		err = batch.Put(columns.CHT.Key(chtKey(changesTrieCHTPrefix, index)), changesTrieRoot[:])
		if err != nil {
			return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
		}
	}

	for i, hash := range hashes {
		number := start + uint64(i)
		lookupKey, err := newLookupKey(number, hash)
		if err != nil {
			return err
		}
		for _, key := range [][]byte{
			columns.Header.Key(lookupKey),
			columns.KeyLookup.Key(hash[:]),
		} {
			err = batch.Del(key)
			if err != nil {
				return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
			}
		}
		err = removeChildren(batch, hash)
		if err != nil {
			return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
		}
		err = deleteNumberIndex(batch, number)
		if err != nil {
			return err
		}
		s.RemoveHeaderMetadata(hash)
	}
	logger.Debugf("built CHT %d with root %s, pruning headers %d to %d", chtNumber, headerRoot, start, end)
	return nil
}

func chtKey(prefix byte, index numberIndexKey) []byte {
	return append([]byte{prefix}, index[:]...)
}

// HeaderCHTRoot returns the root of the header CHT covering the block, or
// nil if that CHT is not built.
func (s *LightStorage) HeaderCHTRoot(chtSize, block uint64) (*common.Hash, error) {
	return s.chtRoot(headerCHTPrefix, chtSize, block)
}

// ChangesTrieCHTRoot returns the root of the changes trie roots CHT
// covering the block, or nil if that CHT is not built.
func (s *LightStorage) ChangesTrieCHTRoot(chtSize, block uint64) (*common.Hash, error) {
	return s.chtRoot(changesTrieCHTPrefix, chtSize, block)
}

func (s *LightStorage) chtRoot(prefix byte, chtSize, block uint64) (*common.Hash, error) {
	if chtSize != s.chtSize {
		return nil, fmt.Errorf("%w: CHT size %d requested, storage uses %d",
			blockchain.ErrBackend, chtSize, s.chtSize)
	}
	chtNumber, ok := cht.BlockToCHTNumber(chtSize, block)
	if !ok {
		return nil, nil
	}
	index, err := newNumberIndexKey(cht.StartNumber(chtSize, chtNumber))
	if err != nil {
		return nil, err
	}
	value, err := get(s.db, columns.CHT, chtKey(prefix, index))
	if err != nil || value == nil {
		return nil, err
	}
	root := common.BytesToHash(value)
	return &root, nil
}

// InsertAux implements api.AuxStore.
func (s *LightStorage) InsertAux(operations api.AuxDataOperations) error {
	batch := s.db.NewBatch()
	defer batch.Reset()
	err := writeAux(batch, operations)
	if err != nil {
		return err
	}
	err = batch.Flush()
	if err != nil {
		return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}
	return nil
}

// GetAux implements api.AuxStore.
func (s *LightStorage) GetAux(key []byte) ([]byte, error) {
	return get(s.db, columns.Aux, key)
}

func writeAux(batch chaindb.Batch, operations api.AuxDataOperations) error {
	for _, operation := range operations {
		var err error
		if operation.Data == nil {
			err = batch.Del(columns.Aux.Key(operation.Key))
		} else {
			err = batch.Put(columns.Aux.Key(operation.Key), operation.Data)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
		}
	}
	return nil
}

// Cache returns the blockchain cache.
func (s *LightStorage) Cache() api.BlockchainCache {
	return blockchainCache{storage: s}
}

func cacheKey(hash common.Hash, key []byte) []byte {
	cacheKey := make([]byte, 0, common.HashLength+len(key))
	cacheKey = append(cacheKey, hash[:]...)
	return append(cacheKey, key...)
}

type blockchainCache struct {
	storage *LightStorage
}

// GetAt implements api.BlockchainCache.
func (c blockchainCache) GetAt(key []byte, hash common.Hash) ([]byte, error) {
	for {
		value, err := get(c.storage.db, columns.Cache, cacheKey(hash, key))
		if err != nil || value != nil {
			return value, err
		}
		header, err := c.storage.Header(hash)
		if err != nil || header == nil || header.Number == 0 {
			return nil, err
		}
		hash = header.ParentHash
	}
}
