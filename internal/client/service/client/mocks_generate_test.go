// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

//go:generate mockgen -destination=mock_telemetry_test.go -package=$GOPACKAGE -mock_names=Client=MockTelemetry github.com/ChainSafe/chainstate/dot/telemetry Client
