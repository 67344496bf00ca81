// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultFinalityNotificationLimit is the default maximum number of blocks
// notified for a single finalization.
const DefaultFinalityNotificationLimit = 256

// Options are the client options. The zero value is valid.
type Options struct {
	// Name is the node name reported to telemetry.
	Name string
	// ExecutionStrategies defaults to executor.DefaultExecutionStrategies.
	ExecutionStrategies *executor.ExecutionStrategies
	// OnConsensusFailure picks the result of a call when native and
	// on-chain executions differ under the Both strategy. By default the
	// call fails with blockchain.ErrConsensusMismatch.
	OnConsensusFailure statemachine.ConsensusFailureHandler
	// FinalityNotificationLimit bounds the number of blocks notified for
	// a single finalization. It defaults to DefaultFinalityNotificationLimit.
	FinalityNotificationLimit uint
	// CHTSize defaults to cht.Size.
	CHTSize uint64
	// Telemetry defaults to a no-op client.
	Telemetry telemetry.Client
	// Registerer registers the client metrics. Metrics are not exported
	// when it is nil.
	Registerer prometheus.Registerer
}

func (o *Options) setDefaults() {
	if o.ExecutionStrategies == nil {
		strategies := executor.DefaultExecutionStrategies()
		o.ExecutionStrategies = &strategies
	}
	if o.FinalityNotificationLimit == 0 {
		o.FinalityNotificationLimit = DefaultFinalityNotificationLimit
	}
	if o.CHTSize == 0 {
		o.CHTSize = cht.Size
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.NewNoopMailer()
	}
}
