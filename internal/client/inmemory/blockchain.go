// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inmemory

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/disiqueira/gotree"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "inmemory"))

type storedBlock struct {
	header         *types.Header
	body           types.Body
	justifications types.Justifications
}

type blockchainStorage struct {
	blocks          map[common.Hash]*storedBlock
	hashes          map[uint64]common.Hash
	children        map[common.Hash][]common.Hash
	bestHash        common.Hash
	bestNumber      uint64
	finalizedHash   common.Hash
	finalizedNumber uint64
	genesisHash     common.Hash
	// headerCHTRoots and changesTrieCHTRoots are keyed by the first block
	// covered by the CHT.
	headerCHTRoots      map[uint64]common.Hash
	changesTrieCHTRoots map[uint64]common.Hash
	leaves              *api.LeafSet[common.Hash, uint64]
	aux                 map[string][]byte
}

// Options configures a Blockchain.
type Options struct {
	// PruneHeaders replaces the canonical headers of finalized blocks by
	// CHTs, as light clients do.
	PruneHeaders bool
	// CHTSize is the number of blocks covered by a CHT, cht.Size if zero.
	CHTSize uint64
	// HeaderMetadataCacheSize is the capacity of the header metadata cache.
	HeaderMetadataCacheSize uint32
}

// Blockchain is an in-memory blockchain. It is safe for concurrent use and
// also implements the storage of light clients.
type Blockchain struct {
	mtx            sync.RWMutex
	storage        blockchainStorage
	headerMetadata *blockchain.HeaderMetadataCache
	cache          *Cache
	pruneHeaders   bool
	chtSize        uint64
}

var _ api.Blockchain = (*Blockchain)(nil)

// NewBlockchain returns an empty blockchain.
func NewBlockchain(options Options) *Blockchain {
	chtSize := options.CHTSize
	if chtSize == 0 {
		chtSize = cht.Size
	}
	bc := &Blockchain{
		storage: blockchainStorage{
			blocks:              make(map[common.Hash]*storedBlock),
			hashes:              make(map[uint64]common.Hash),
			children:            make(map[common.Hash][]common.Hash),
			headerCHTRoots:      make(map[uint64]common.Hash),
			changesTrieCHTRoots: make(map[uint64]common.Hash),
			leaves:              api.NewLeafSet[common.Hash, uint64](),
			aux:                 make(map[string][]byte),
		},
		headerMetadata: blockchain.NewHeaderMetadataCache(options.HeaderMetadataCacheSize),
		pruneHeaders:   options.PruneHeaders,
		chtSize:        chtSize,
	}
	bc.cache = newCache(bc)
	return bc
}

// Header implements blockchain.HeaderBackend.
func (bc *Blockchain) Header(hash common.Hash) (*types.Header, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return nil, nil
	}
	return block.header.DeepCopy(), nil
}

// Info implements blockchain.HeaderBackend.
func (bc *Blockchain) Info() blockchain.Info {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return blockchain.Info{
		BestHash:        bc.storage.bestHash,
		BestNumber:      bc.storage.bestNumber,
		GenesisHash:     bc.storage.genesisHash,
		FinalizedHash:   bc.storage.finalizedHash,
		FinalizedNumber: bc.storage.finalizedNumber,
		NumberLeaves:    int(bc.storage.leaves.Count()),
	}
}

// Status implements blockchain.HeaderBackend.
func (bc *Blockchain) Status(id types.BlockID) (blockchain.BlockStatus, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	hash, ok := bc.id(id)
	if !ok {
		return blockchain.BlockStatusUnknown, nil
	}
	if _, ok := bc.storage.blocks[hash]; ok {
		return blockchain.BlockStatusInChain, nil
	}
	return blockchain.BlockStatusUnknown, nil
}

// Number implements blockchain.HeaderBackend.
func (bc *Blockchain) Number(hash common.Hash) (*uint64, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return nil, nil
	}
	number := block.header.Number
	return &number, nil
}

// Hash implements blockchain.HeaderBackend.
func (bc *Blockchain) Hash(number uint64) (*common.Hash, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	hash, ok := bc.storage.hashes[number]
	if !ok {
		return nil, nil
	}
	return &hash, nil
}

// HeaderMetadata implements blockchain.HeaderMetadata.
func (bc *Blockchain) HeaderMetadata(hash common.Hash) (blockchain.CachedHeaderMetadata, error) {
	if metadata, ok := bc.headerMetadata.HeaderMetadata(hash); ok {
		return metadata, nil
	}
	header, err := bc.Header(hash)
	if err != nil {
		return blockchain.CachedHeaderMetadata{}, err
	}
	if header == nil {
		return blockchain.CachedHeaderMetadata{}, blockchain.UnknownBlockError("header not found: %s", hash)
	}
	metadata := blockchain.NewCachedHeaderMetadata(header)
	bc.headerMetadata.InsertHeaderMetadata(hash, metadata)
	return metadata, nil
}

// InsertHeaderMetadata implements blockchain.HeaderMetadata.
func (bc *Blockchain) InsertHeaderMetadata(hash common.Hash, metadata blockchain.CachedHeaderMetadata) {
	bc.headerMetadata.InsertHeaderMetadata(hash, metadata)
}

// RemoveHeaderMetadata implements blockchain.HeaderMetadata.
func (bc *Blockchain) RemoveHeaderMetadata(hash common.Hash) {
	bc.headerMetadata.RemoveHeaderMetadata(hash)
}

// Body implements blockchain.Backend.
func (bc *Blockchain) Body(hash common.Hash) (types.Body, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return nil, nil
	}
	return block.body, nil
}

// Justifications implements blockchain.Backend.
func (bc *Blockchain) Justifications(hash common.Hash) (types.Justifications, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return nil, nil
	}
	return block.justifications, nil
}

// LastFinalized implements blockchain.Backend.
func (bc *Blockchain) LastFinalized() (common.Hash, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.storage.finalizedHash, nil
}

// Leaves implements blockchain.Backend.
func (bc *Blockchain) Leaves() ([]common.Hash, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return bc.storage.leaves.Hashes(), nil
}

// Children implements blockchain.Backend.
func (bc *Blockchain) Children(parent common.Hash) ([]common.Hash, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	children := bc.storage.children[parent]
	cp := make([]common.Hash, len(children))
	copy(cp, children)
	return cp, nil
}

// Cache implements api.Blockchain.
func (bc *Blockchain) Cache() api.BlockchainCache {
	return bc.cache
}

// Insert inserts a block. Its parent must be known unless it is the first
// block inserted.
func (bc *Blockchain) Insert(hash common.Hash, header *types.Header, justifications types.Justifications,
	body types.Body, state api.NewBlockState) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	return bc.insert(hash, header, justifications, body, state)
}

func (bc *Blockchain) insert(hash common.Hash, header *types.Header, justifications types.Justifications,
	body types.Body, state api.NewBlockState) error {
	_, parentKnown := bc.storage.blocks[header.ParentHash]
	if len(bc.storage.blocks) > 0 && !parentKnown {
		if _, known := bc.storage.blocks[hash]; !known {
			return blockchain.UnknownBlockError("parent %s of block %s", header.ParentHash, hash)
		}
	}

	if _, known := bc.storage.blocks[hash]; !known {
		bc.storage.blocks[hash] = &storedBlock{
			header:         header.DeepCopy(),
			body:           body,
			justifications: justifications,
		}
		if parentKnown {
			bc.storage.children[header.ParentHash] = append(bc.storage.children[header.ParentHash], hash)
		}
		// the outcome is dropped since the in-memory storage cannot fail
		// once the block is inserted
		_ = bc.storage.leaves.Import(hash, header.Number, header.ParentHash)
	}

	if state.IsBest() {
		err := bc.applyHead(hash, header)
		if err != nil {
			return err
		}
	}

	if header.Number == 0 {
		bc.storage.genesisHash = hash
		bc.storage.hashes[0] = hash
	}

	if state.IsFinal() {
		return bc.finalize(hash, nil)
	}
	return nil
}

// applyHead makes the block the best block and reorganises the canonical
// chain along the tree route from the previous best block.
func (bc *Blockchain) applyHead(hash common.Hash, header *types.Header) error {
	if len(bc.storage.hashes) > 0 && bc.storage.bestHash != header.ParentHash &&
		bc.storage.bestHash != hash && header.Number > 0 {
		route, err := blockchain.NewTreeRoute(lockedMetadata{bc}, bc.storage.bestHash, hash)
		if err != nil {
			return fmt.Errorf("computing tree route to new head: %w", err)
		}

		for _, retracted := range route.Retracted() {
			if retracted.Number > route.Last().Number {
				delete(bc.storage.hashes, retracted.Number)
			}
		}
		for _, enacted := range route.Enacted() {
			bc.storage.hashes[enacted.Number] = enacted.Hash
		}
		logger.Debugf("reorganised canonical chain to %s, retracted %d blocks",
			hash, len(route.Retracted()))
	}

	for number := header.Number + 1; number <= bc.storage.bestNumber; number++ {
		delete(bc.storage.hashes, number)
	}

	bc.storage.bestHash = hash
	bc.storage.bestNumber = header.Number
	bc.storage.hashes[header.Number] = hash
	return nil
}

// SetHead makes the block the best block.
func (bc *Blockchain) SetHead(hash common.Hash) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	return bc.setHead(hash)
}

func (bc *Blockchain) setHead(hash common.Hash) error {
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return blockchain.UnknownBlockError("set head: %s", hash)
	}
	return bc.applyHead(hash, block.header)
}

// FinalizeHeader finalizes the block without attaching a justification.
func (bc *Blockchain) FinalizeHeader(hash common.Hash) error {
	return bc.FinalizeBlock(hash, nil)
}

// FinalizeBlock finalizes the block, attaching the justification to it.
func (bc *Blockchain) FinalizeBlock(hash common.Hash, justification *types.Justification) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	return bc.finalize(hash, justification)
}

func (bc *Blockchain) finalize(hash common.Hash, justification *types.Justification) error {
	block, ok := bc.storage.blocks[hash]
	if !ok {
		return blockchain.UnknownBlockError("finalize: %s", hash)
	}

	if justification != nil {
		block.justifications.Append(*justification)
	}

	number := block.header.Number
	if number < bc.storage.finalizedNumber {
		return nil
	}
	if !bc.isDescendantOf(bc.storage.bestHash, hash, number) {
		err := bc.applyHead(hash, block.header)
		if err != nil {
			return err
		}
	}
	bc.storage.finalizedHash = hash
	bc.storage.finalizedNumber = number
	// the outcome is dropped since the in-memory storage cannot fail
	_ = bc.storage.leaves.FinalizeHeight(number)
	bc.pruneStaleLeaves(hash, number)

	if bc.pruneHeaders {
		return bc.pruneCHTGroups(number)
	}
	return nil
}

// pruneStaleLeaves drops the leaves of forks which do not descend from the
// finalized block. Their blocks stay stored, so that finalizing them later
// fails on the finalized chain check rather than on an unknown block.
func (bc *Blockchain) pruneStaleLeaves(finalized common.Hash, finalizedNumber uint64) {
	for _, leaf := range bc.storage.leaves.Items() {
		if leaf.Number < finalizedNumber || leaf.Hash == finalized {
			continue
		}
		if bc.isDescendantOf(leaf.Hash, finalized, finalizedNumber) {
			continue
		}
		bc.storage.leaves.Remove(leaf.Hash, leaf.Number, nil)
		logger.Debugf("dropped leaf %s which does not descend from finalized block %s",
			leaf.Hash, finalized)
	}
}

func (bc *Blockchain) isDescendantOf(hash, ancestor common.Hash, ancestorNumber uint64) bool {
	for {
		block, ok := bc.storage.blocks[hash]
		if !ok || block.header.Number < ancestorNumber {
			return false
		}
		if block.header.Number == ancestorNumber {
			return hash == ancestor
		}
		hash = block.header.ParentHash
	}
}

func (bc *Blockchain) removeBlock(hash common.Hash, header *types.Header) {
	delete(bc.storage.blocks, hash)
	siblings := bc.storage.children[header.ParentHash]
	for i, sibling := range siblings {
		if sibling == hash {
			siblings = append(siblings[:i:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(bc.storage.children, header.ParentHash)
	} else {
		bc.storage.children[header.ParentHash] = siblings
	}
	delete(bc.storage.children, hash)
	bc.headerMetadata.RemoveHeaderMetadata(hash)
	bc.cache.remove(hash)
}

// revert reverts the best block, making its parent the best block. It
// returns false when the best block is finalized or is not a leaf.
func (bc *Blockchain) revert() (reverted *common.Hash, ok bool) {
	hash := bc.storage.bestHash
	block, known := bc.storage.blocks[hash]
	if !known || block.header.Number <= bc.storage.finalizedNumber {
		return nil, false
	}
	if !bc.storage.leaves.Contains(block.header.Number, hash) {
		return nil, false
	}

	parent := block.header.ParentHash
	if len(bc.storage.children[parent]) == 1 {
		bc.storage.leaves.Revert(hash, block.header.Number, parent)
	} else {
		bc.storage.leaves.Remove(hash, block.header.Number, nil)
	}

	delete(bc.storage.hashes, block.header.Number)
	bc.removeBlock(hash, block.header)
	bc.storage.bestHash = parent
	bc.storage.bestNumber = block.header.Number - 1
	return &hash, true
}

// InsertAux implements api.AuxStore.
func (bc *Blockchain) InsertAux(operations api.AuxDataOperations) error {
	bc.mtx.Lock()
	defer bc.mtx.Unlock()
	bc.writeAux(operations)
	return nil
}

func (bc *Blockchain) writeAux(operations api.AuxDataOperations) {
	for _, operation := range operations {
		if operation.Data == nil {
			delete(bc.storage.aux, string(operation.Key))
			continue
		}
		bc.storage.aux[string(operation.Key)] = common.CopyBytes(operation.Data)
	}
}

// GetAux implements api.AuxStore.
func (bc *Blockchain) GetAux(key []byte) ([]byte, error) {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()
	return common.CopyBytes(bc.storage.aux[string(key)]), nil
}

// String renders the block tree from the genesis block.
func (bc *Blockchain) String() string {
	bc.mtx.RLock()
	defer bc.mtx.RUnlock()

	root, ok := bc.storage.blocks[bc.storage.genesisHash]
	if !ok {
		return "empty blockchain"
	}
	tree := gotree.New(bc.blockString(root.header.Number, bc.storage.genesisHash))
	bc.addChildren(tree, bc.storage.genesisHash)

	return fmt.Sprintf("best: %s\nfinalized: %s\nleaves: %v\n%s",
		bc.storage.bestHash, bc.storage.finalizedHash, bc.storage.leaves.Hashes(), tree.Print())
}

func (bc *Blockchain) addChildren(tree gotree.Tree, parent common.Hash) {
	for _, child := range bc.storage.children[parent] {
		block := bc.storage.blocks[child]
		sub := tree.Add(bc.blockString(block.header.Number, child))
		bc.addChildren(sub, child)
	}
}

func (bc *Blockchain) blockString(number uint64, hash common.Hash) string {
	return fmt.Sprintf("#%d %s", number, hash.Short())
}

// id resolves a block id without taking the lock.
func (bc *Blockchain) id(id types.BlockID) (common.Hash, bool) {
	switch id := id.(type) {
	case types.BlockIDHash:
		return common.Hash(id), true
	case types.BlockIDNumber:
		hash, ok := bc.storage.hashes[uint64(id)]
		return hash, ok
	default:
		return common.Hash{}, false
	}
}

// lockedMetadata reads header metadata while the blockchain lock is held.
type lockedMetadata struct {
	bc *Blockchain
}

func (m lockedMetadata) HeaderMetadata(hash common.Hash) (blockchain.CachedHeaderMetadata, error) {
	if metadata, ok := m.bc.headerMetadata.HeaderMetadata(hash); ok {
		return metadata, nil
	}
	block, ok := m.bc.storage.blocks[hash]
	if !ok {
		return blockchain.CachedHeaderMetadata{}, blockchain.UnknownBlockError("header not found: %s", hash)
	}
	metadata := blockchain.NewCachedHeaderMetadata(block.header)
	m.bc.headerMetadata.InsertHeaderMetadata(hash, metadata)
	return metadata, nil
}

func (m lockedMetadata) InsertHeaderMetadata(hash common.Hash, metadata blockchain.CachedHeaderMetadata) {
	m.bc.headerMetadata.InsertHeaderMetadata(hash, metadata)
}

func (m lockedMetadata) RemoveHeaderMetadata(hash common.Hash) {
	m.bc.headerMetadata.RemoveHeaderMetadata(hash)
}
