// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package inmemory

import (
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Cache holds values recorded at blocks, such as authority sets. A value
// recorded at a block applies to its descendants until overridden.
// It is guarded by the lock of its blockchain.
type Cache struct {
	bc      *Blockchain
	entries map[common.Hash]map[string][]byte
}

var _ api.BlockchainCache = (*Cache)(nil)

func newCache(bc *Blockchain) *Cache {
	return &Cache{
		bc:      bc,
		entries: make(map[common.Hash]map[string][]byte),
	}
}

func (c *Cache) insert(hash common.Hash, values map[string][]byte) {
	entry, ok := c.entries[hash]
	if !ok {
		entry = make(map[string][]byte, len(values))
		c.entries[hash] = entry
	}
	for key, value := range values {
		entry[key] = common.CopyBytes(value)
	}
}

func (c *Cache) remove(hash common.Hash) {
	delete(c.entries, hash)
}

// GetAt returns the value of key recorded at the block or at its nearest
// ancestor, or nil if there is none.
func (c *Cache) GetAt(key []byte, hash common.Hash) ([]byte, error) {
	c.bc.mtx.RLock()
	defer c.bc.mtx.RUnlock()

	for {
		if entry, ok := c.entries[hash]; ok {
			if value, ok := entry[string(key)]; ok {
				return common.CopyBytes(value), nil
			}
		}
		block, ok := c.bc.storage.blocks[hash]
		if !ok || block.header.Number == 0 {
			return nil, nil
		}
		hash = block.header.ParentHash
	}
}
