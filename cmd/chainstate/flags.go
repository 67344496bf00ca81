// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"github.com/urfave/cli"
)

const logLevelsUsage = "Supports levels crit (silent), eror, warn, info, dbug and trce (trace)"

// Global node configuration flags
var (
	// ConfigFlag TOML configuration file
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	// BasePathFlag data directory for node
	BasePathFlag = cli.StringFlag{
		Name:  "basepath",
		Usage: "Data directory for the node",
	}
	// NameFlag node name reported to telemetry
	NameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "Node name",
	}

	// LogFlag cli service settings
	LogFlag = cli.StringFlag{
		Name:  "log",
		Usage: "Global log level. " + logLevelsUsage,
	}
	LogClientLevelFlag = cli.StringFlag{
		Name:  "log-client",
		Usage: "Client package log level. " + logLevelsUsage,
	}
	LogDBLevelFlag = cli.StringFlag{
		Name:  "log-db",
		Usage: "Database package log level. " + logLevelsUsage,
	}
	LogLightLevelFlag = cli.StringFlag{
		Name:  "log-light",
		Usage: "Light client package log level. " + logLevelsUsage,
	}
	LogInMemoryLevelFlag = cli.StringFlag{
		Name:  "log-inmemory",
		Usage: "In-memory backend package log level. " + logLevelsUsage,
	}
	LogExecutorLevelFlag = cli.StringFlag{
		Name:  "log-executor",
		Usage: "Executor package log level. " + logLevelsUsage,
	}
	LogBlockBuilderLevelFlag = cli.StringFlag{
		Name:  "log-block-builder",
		Usage: "Block builder package log level. " + logLevelsUsage,
	}
)

// Serve flags
var (
	// PublishMetricsFlag publishes node metrics to prometheus.
	PublishMetricsFlag = cli.BoolFlag{
		Name:  "publish-metrics",
		Usage: "Publish node metrics",
	}
	// MetricsAddressFlag sets the metrics server listening address
	MetricsAddressFlag = cli.StringFlag{
		Name:  "metrics-address",
		Usage: "Metrics server listening address, or port",
	}
	// TelemetryURLFlag is URL of the telemetry server to connect to.
	// This flag can be passed multiple times as a means to specify multiple
	// telemetry endpoints. Verbosity levels range from 0-9, with 0 denoting the
	// least verbosity.
	TelemetryURLFlag = cli.StringSliceFlag{
		Name:  "telemetry-url",
		Usage: "The URL of the telemetry server to connect to, followed by its verbosity, eg --telemetry-url 'wss://foo/bar 0'",
	}
	PprofServerFlag = cli.BoolFlag{
		Name:  "pprofserver",
		Usage: "Enable the pprof HTTP server",
	}
	PprofAddressFlag = cli.StringFlag{
		Name:  "pprofaddress",
		Usage: "pprof HTTP server listening address, if it is enabled.",
	}
	PprofBlockRateFlag = cli.IntFlag{
		Name:  "pprofblockrate",
		Value: -1,
		Usage: "pprof block rate. See https://pkg.go.dev/runtime#SetBlockProfileRate.",
	}
	PprofMutexRateFlag = cli.IntFlag{
		Name:  "pprofmutexrate",
		Value: -1,
		Usage: "profiling mutex rate. See https://pkg.go.dev/runtime#SetMutexProfileFraction.",
	}
	// StatePruningFlag sets the number of finalized states kept by the full client
	StatePruningFlag = cli.StringFlag{
		Name:  "state-pruning",
		Usage: "Number of finalized states kept by the full client, or 'archive' to keep them all",
	}
	// RetryCountFlag sets the retries of the light client remote requests
	RetryCountFlag = cli.UintFlag{
		Name:  "retry-count",
		Usage: "Number of retries of a failed light client remote request",
	}
	// BlockTimeFlag sets the time between authored blocks
	BlockTimeFlag = cli.DurationFlag{
		Name:  "block-time",
		Usage: "Time between two blocks of the development chain, eg 6s",
	}
	// FinalityDepthFlag sets the depth at which blocks are finalized
	FinalityDepthFlag = cli.Uint64Flag{
		Name:  "finality-depth",
		Usage: "Number of blocks built on top of a block before it is finalized",
	}
)

// Query flags
var (
	// NumberFlag is a block number
	NumberFlag = cli.StringFlag{
		Name:  "number",
		Usage: "Block number",
	}
	// HashFlag is a block hash
	HashFlag = cli.StringFlag{
		Name:  "hash",
		Usage: "Block hash, hex encoded",
	}
)

// flag sets for all commands
var (
	// GlobalFlags are flags that are valid for use with all commands
	GlobalFlags = []cli.Flag{
		ConfigFlag,
		BasePathFlag,
		NameFlag,
		LogFlag,
		LogClientLevelFlag,
		LogDBLevelFlag,
		LogLightLevelFlag,
		LogInMemoryLevelFlag,
		LogExecutorLevelFlag,
		LogBlockBuilderLevelFlag,
	}

	// ServeFlags are the flags of the serve command
	ServeFlags = append([]cli.Flag{
		PublishMetricsFlag,
		MetricsAddressFlag,
		TelemetryURLFlag,
		PprofServerFlag,
		PprofAddressFlag,
		PprofBlockRateFlag,
		PprofMutexRateFlag,
		StatePruningFlag,
		RetryCountFlag,
		BlockTimeFlag,
		FinalityDepthFlag,
	}, GlobalFlags...)

	// HeaderFlags are the flags of the header command
	HeaderFlags = append([]cli.Flag{NumberFlag, HashFlag}, GlobalFlags...)

	// CHTRootFlags are the flags of the cht-root command
	CHTRootFlags = append([]cli.Flag{NumberFlag}, GlobalFlags...)
)
