// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"encoding/json"
	"time"

	"github.com/ChainSafe/chainstate/lib/common"
)

var _ json.Marshaler = (*BlockImportTM)(nil)

type blockImport struct {
	BestHash *common.Hash `json:"best"`
	Height   uint64       `json:"height"`
	Origin   string       `json:"origin"`
}

// BlockImportTM holds the `block.import` telemetry message, sent when a
// block becomes the new best block.
type BlockImportTM blockImport

// NewBlockImportTM creates a new BlockImportTM.
func NewBlockImportTM(bestHash *common.Hash, height uint64, origin string) *BlockImportTM {
	return &BlockImportTM{
		BestHash: bestHash,
		Height:   height,
		Origin:   origin,
	}
}

// MarshalJSON implements json.Marshaler.
func (bi BlockImportTM) MarshalJSON() ([]byte, error) {
	telemetryData := struct {
		blockImport
		MessageType string    `json:"msg"`
		Timestamp   time.Time `json:"ts"`
	}{
		blockImport: blockImport(bi),
		MessageType: blockImportMsg,
		Timestamp:   time.Now(),
	}
	return json.Marshal(telemetryData)
}
