// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package columns lists the key spaces of the light database. Keys of a
// column are prefixed by the column byte.
package columns

// Column is a database key space.
type Column byte

const (
	// Meta holds the best, finalized and genesis block pointers and the
	// leaf set.
	Meta Column = iota
	// KeyLookup maps hashes to lookup keys and numbers to canonical hashes.
	KeyLookup
	// Header maps lookup keys to encoded headers.
	Header
	// CHT maps CHT keys to CHT roots.
	CHT
	// Aux holds auxiliary data.
	Aux
	// Cache holds values recorded at blocks, keyed by block hash.
	Cache
)

// Key returns key prefixed by the column.
func (c Column) Key(key []byte) []byte {
	prefixed := make([]byte, 0, len(key)+1)
	prefixed = append(prefixed, byte(c))
	return append(prefixed, key...)
}
