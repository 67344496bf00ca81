// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"fmt"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/db/columns"
	"github.com/ChainSafe/chainstate/internal/client/db/metakeys"
	"github.com/ChainSafe/chainstate/lib/common"
)

// Functionality for reading and storing children hashes from db.

func childrenKey(parentHash common.Hash) []byte {
	key := make([]byte, 0, len(metakeys.ChildrenPrefix)+common.HashLength)
	key = append(key, metakeys.ChildrenPrefix...)
	return append(key, parentHash[:]...)
}

// Returns the hashes of the children blocks of the block with parentHash.
func readChildren(db chaindb.Database, parentHash common.Hash) ([]common.Hash, error) {
	encoded, err := get(db, columns.Meta, childrenKey(parentHash))
	if err != nil || encoded == nil {
		return nil, err
	}

	var children []common.Hash
	err = types.Decode(encoded, &children)
	if err != nil {
		return nil, fmt.Errorf("decoding children: %w", err)
	}
	return children, nil
}

// Insert the key-value pair (parentHash, childrenHashes) in the batch.
// Any existing value is overwritten upon write.
func writeChildren(batch chaindb.Batch, parentHash common.Hash, childrenHashes []common.Hash) error {
	encoded, err := types.Encode(childrenHashes)
	if err != nil {
		return fmt.Errorf("encoding children: %w", err)
	}
	return batch.Put(columns.Meta.Key(childrenKey(parentHash)), encoded)
}

// Prepare the batch to remove the children of parentHash.
func removeChildren(batch chaindb.Batch, parentHash common.Hash) error {
	return batch.Del(columns.Meta.Key(childrenKey(parentHash)))
}
