// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"encoding/json"
)

// telemetry message types
const (
	blockImportMsg       = "block.import"
	notifyFinalizedMsg   = "notify.finalized"
	executionMismatchMsg = "execution.mismatch"
	systemConnectedMsg   = "system.connected"
)

// Client sends telemetry messages.
type Client interface {
	SendMessage(msg json.Marshaler)
}

// Endpoint is a telemetry server to send messages to.
type Endpoint struct {
	Endpoint  string
	Verbosity int
}
