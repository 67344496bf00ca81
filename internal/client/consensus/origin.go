// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

// BlockOrigin is where a block came from.
type BlockOrigin uint8

const (
	// BlockOriginGenesis is the genesis block built into the client.
	BlockOriginGenesis BlockOrigin = iota
	// BlockOriginNetworkInitialSync is a block received during initial sync.
	BlockOriginNetworkInitialSync
	// BlockOriginNetworkBroadcast is a block broadcast on the network.
	BlockOriginNetworkBroadcast
	// BlockOriginConsensusBroadcast is a block broadcast by the consensus
	// engine.
	BlockOriginConsensusBroadcast
	// BlockOriginOwn is a block authored by this node.
	BlockOriginOwn
	// BlockOriginFile is a block imported from a file.
	BlockOriginFile
)

func (o BlockOrigin) String() string {
	switch o {
	case BlockOriginGenesis:
		return "Genesis"
	case BlockOriginNetworkInitialSync:
		return "NetworkInitialSync"
	case BlockOriginNetworkBroadcast:
		return "NetworkBroadcast"
	case BlockOriginConsensusBroadcast:
		return "ConsensusBroadcast"
	case BlockOriginOwn:
		return "Own"
	case BlockOriginFile:
		return "File"
	default:
		return "Unknown"
	}
}

// IsNotifiable returns false for the origins whose imports are not notified:
// genesis, initial sync and file imports.
func (o BlockOrigin) IsNotifiable() bool {
	switch o {
	case BlockOriginGenesis, BlockOriginNetworkInitialSync, BlockOriginFile:
		return false
	default:
		return true
	}
}
