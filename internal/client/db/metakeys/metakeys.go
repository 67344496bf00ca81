// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package metakeys lists the keys of the meta column.
package metakeys

var (
	// Type holds the type of storage.
	Type = []byte("type")
	// BestBlock holds the lookup key of the best block.
	BestBlock = []byte("best")
	// FinalizedBlock holds the lookup key of the last finalized block.
	FinalizedBlock = []byte("final")
	// GenesisHash holds the hash of the genesis block.
	GenesisHash = []byte("gen")
	// LeafPrefix holds the leaf set.
	LeafPrefix = []byte("leaf")
	// ChildrenPrefix prefixes the children lists of blocks.
	ChildrenPrefix = []byte("children")
)

// LightType is the value of Type for light storages.
var LightType = []byte("light")
