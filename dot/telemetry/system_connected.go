// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"encoding/json"
	"time"

	"github.com/ChainSafe/chainstate/lib/common"
)

var _ json.Marshaler = (*SystemConnectedTM)(nil)

type systemConnected struct {
	Chain          string       `json:"chain"`
	GenesisHash    *common.Hash `json:"genesis_hash"`
	Implementation string       `json:"implementation"`
	Name           string       `json:"name"`
	StartupTime    string       `json:"startup_time"`
	Version        string       `json:"version"`
}

// SystemConnectedTM holds the `system.connected` telemetry message, sent
// once the client is started on its genesis block.
type SystemConnectedTM systemConnected

// NewSystemConnectedTM creates a new SystemConnectedTM.
func NewSystemConnectedTM(chain string, genesisHash *common.Hash,
	implementation, name, startupTime, version string) *SystemConnectedTM {
	return &SystemConnectedTM{
		Chain:          chain,
		GenesisHash:    genesisHash,
		Implementation: implementation,
		Name:           name,
		StartupTime:    startupTime,
		Version:        version,
	}
}

// MarshalJSON implements json.Marshaler.
func (sc SystemConnectedTM) MarshalJSON() ([]byte, error) {
	telemetryData := struct {
		systemConnected
		MessageType string    `json:"msg"`
		Timestamp   time.Time `json:"ts"`
	}{
		systemConnected: systemConnected(sc),
		MessageType:     systemConnectedMsg,
		Timestamp:       time.Now(),
	}
	return json.Marshal(telemetryData)
}
