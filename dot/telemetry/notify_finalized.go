// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ChainSafe/chainstate/lib/common"
)

var _ json.Marshaler = (*NotifyFinalizedTM)(nil)

type notifyFinalized struct {
	Best common.Hash `json:"best"`
	// Height is the block number, as a string.
	Height string `json:"height"`
}

// NotifyFinalizedTM holds the `notify.finalized` telemetry message, which is
// sent when a new block gets finalized.
type NotifyFinalizedTM notifyFinalized

// NewNotifyFinalizedTM gets a new NotifyFinalizedTM struct.
func NewNotifyFinalizedTM(best common.Hash, height uint64) *NotifyFinalizedTM {
	return &NotifyFinalizedTM{
		Best:   best,
		Height: strconv.FormatUint(height, 10),
	}
}

// MarshalJSON implements json.Marshaler.
func (nf NotifyFinalizedTM) MarshalJSON() ([]byte, error) {
	telemetryData := struct {
		notifyFinalized
		MessageType string    `json:"msg"`
		Timestamp   time.Time `json:"ts"`
	}{
		notifyFinalized: notifyFinalized(nf),
		MessageType:     notifyFinalizedMsg,
		Timestamp:       time.Now(),
	}
	return json.Marshal(telemetryData)
}
