// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultHeaderCacheSize = 8192

// headerCache keeps recently read headers. Headers handed out are copies.
type headerCache struct {
	cache *lru.Cache[common.Hash, *types.Header]
}

func newHeaderCache(size int) headerCache {
	if size <= 0 {
		size = defaultHeaderCacheSize
	}
	cache, err := lru.NewWithEvict[common.Hash, *types.Header](size, func(hash common.Hash, _ *types.Header) {
		logger.Tracef("evicting header %s from cache", hash)
	})
	if err != nil {
		panic(err)
	}
	return headerCache{cache: cache}
}

func (c headerCache) get(hash common.Hash) (*types.Header, bool) {
	header, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	return header.DeepCopy(), true
}

func (c headerCache) insert(hash common.Hash, header *types.Header) {
	c.cache.Add(hash, header.DeepCopy())
}

func (c headerCache) remove(hash common.Hash) {
	c.cache.Remove(hash)
}
