// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/db/columns"
	"github.com/ChainSafe/chainstate/internal/client/db/metakeys"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Database metadata.
type meta struct {
	// Hash of the best known block.
	BestHash common.Hash
	// Number of the best known block.
	BestNumber uint64
	// Hash of the best finalized block.
	FinalizedHash common.Hash
	// Number of the best finalized block.
	FinalizedNumber uint64
	// Hash of the genesis block.
	GenesisHash common.Hash
}

// A block lookup key: used for canonical lookup from block number to hash.
type numberIndexKey [4]byte

// Convert block number into short lookup key (big endian representation)
// for blocks that are in the canonical chain.
//
// This kind of key is only used for lookups into an index, NOT for storing
// header data or others.
func newNumberIndexKey(number uint64) (numberIndexKey, error) {
	if number > math.MaxUint32 {
		return numberIndexKey{}, fmt.Errorf("%w: block number %d cannot be converted to uint32",
			blockchain.ErrBackend, number)
	}
	var key numberIndexKey
	binary.BigEndian.PutUint32(key[:], uint32(number))
	return key, nil
}

// lookupKey is the key headers are stored under: the number index key of
// the block followed by its hash.
func newLookupKey(number uint64, hash common.Hash) ([]byte, error) {
	index, err := newNumberIndexKey(number)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(index)+common.HashLength)
	key = append(key, index[:]...)
	return append(key, hash[:]...), nil
}

func lookupKeyToHash(key []byte) (common.Hash, error) {
	if len(key) != len(numberIndexKey{})+common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: invalid lookup key length %d", blockchain.ErrBackend, len(key))
	}
	return common.BytesToHash(key[len(numberIndexKey{}):]), nil
}

// get reads the value of key in the column, nil if it is not stored.
func get(db chaindb.Database, column columns.Column, key []byte) ([]byte, error) {
	value, err := db.Get(column.Key(key))
	if errors.Is(err, chaindb.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", blockchain.ErrBackend, err)
	}
	return value, nil
}

// Convert block id to block lookup key. The block lookup key is the key
// the header is stored under.
func blockIDToLookupKey(db chaindb.Database, id types.BlockID) ([]byte, error) {
	switch id := id.(type) {
	case types.BlockIDNumber:
		key, err := newNumberIndexKey(uint64(id))
		if err != nil {
			return nil, err
		}
		return get(db, columns.KeyLookup, key[:])
	case types.BlockIDHash:
		return get(db, columns.KeyLookup, id[:])
	default:
		return nil, fmt.Errorf("%w: unsupported block id %T", blockchain.ErrBackend, id)
	}
}

// Read a header from the database.
func readHeader(db chaindb.Database, id types.BlockID) (*types.Header, error) {
	key, err := blockIDToLookupKey(db, id)
	if err != nil || key == nil {
		return nil, err
	}
	encoded, err := get(db, columns.Header, key)
	if err != nil || encoded == nil {
		return nil, err
	}
	header, err := types.DecodeHeader(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding header: %w", blockchain.ErrBackend, err)
	}
	return header, nil
}

func readMeta(db chaindb.Database) (meta, error) {
	genesisHash, err := readGenesisHash(db)
	if err != nil {
		return meta{}, err
	}
	if genesisHash == nil {
		return meta{}, nil
	}

	loadMetaBlock := func(desc string, key []byte) (common.Hash, uint64, error) {
		lookupKey, err := get(db, columns.Meta, key)
		if err != nil || lookupKey == nil {
			return common.Hash{}, 0, err
		}
		encoded, err := get(db, columns.Header, lookupKey)
		if err != nil || encoded == nil {
			return common.Hash{}, 0, err
		}
		header, err := types.DecodeHeader(encoded)
		if err != nil {
			return common.Hash{}, 0, fmt.Errorf("%w: decoding %s header: %w", blockchain.ErrBackend, desc, err)
		}
		hash := header.Hash()
		logger.Debugf("opened blockchain db, fetched %s = %s (#%d)", desc, hash, header.Number)
		return hash, header.Number, nil
	}

	bestHash, bestNumber, err := loadMetaBlock("best", metakeys.BestBlock)
	if err != nil {
		return meta{}, err
	}
	finalizedHash, finalizedNumber, err := loadMetaBlock("final", metakeys.FinalizedBlock)
	if err != nil {
		return meta{}, err
	}

	return meta{
		BestHash:        bestHash,
		BestNumber:      bestNumber,
		FinalizedHash:   finalizedHash,
		FinalizedNumber: finalizedNumber,
		GenesisHash:     *genesisHash,
	}, nil
}

// Read genesis hash from database.
func readGenesisHash(db chaindb.Database) (*common.Hash, error) {
	value, err := get(db, columns.Meta, metakeys.GenesisHash)
	if err != nil || value == nil {
		return nil, err
	}
	hash := common.BytesToHash(value)
	return &hash, nil
}
