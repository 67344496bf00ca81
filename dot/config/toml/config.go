// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package toml

// Config is a collection of configurations throughout the system
type Config struct {
	Global    GlobalConfig    `toml:"global,omitempty"`
	Log       LogConfig       `toml:"log,omitempty"`
	Client    ClientConfig    `toml:"client,omitempty"`
	Light     LightConfig     `toml:"light,omitempty"`
	Dev       DevConfig       `toml:"dev,omitempty"`
	Telemetry TelemetryConfig `toml:"telemetry,omitempty"`
	Pprof     PprofConfig     `toml:"pprof,omitempty"`
}

// GlobalConfig is to marshal/unmarshal toml global config vars
type GlobalConfig struct {
	Name           string `toml:"name,omitempty"`
	BasePath       string `toml:"basepath,omitempty"`
	LogLvl         string `toml:"log,omitempty"`
	PublishMetrics bool   `toml:"metrics,omitempty"`
	MetricsAddress string `toml:"metrics-address,omitempty"`
}

// LogConfig represents the log levels for individual packages
type LogConfig struct {
	ClientLvl       string `toml:"client,omitempty"`
	DBLvl           string `toml:"db,omitempty"`
	LightLvl        string `toml:"light,omitempty"`
	InMemoryLvl     string `toml:"inmemory,omitempty"`
	ExecutorLvl     string `toml:"executor,omitempty"`
	BlockBuilderLvl string `toml:"block-builder,omitempty"`
}

// ClientConfig is to marshal/unmarshal toml client config vars
type ClientConfig struct {
	FinalityNotificationLimit uint    `toml:"finality-notification-limit,omitempty"`
	StatePruning              *uint64 `toml:"state-pruning,omitempty"`
	HeaderCacheSize           int     `toml:"header-cache-size,omitempty"`
	CHTSize                   uint64  `toml:"cht-size,omitempty"`
}

// LightConfig is to marshal/unmarshal toml light client config vars
type LightConfig struct {
	RetryCount uint   `toml:"retry-count,omitempty"`
	RetryWait  string `toml:"retry-wait,omitempty"`
}

// DevConfig is to marshal/unmarshal toml development chain config vars
type DevConfig struct {
	BlockTime     string `toml:"block-time,omitempty"`
	FinalityDepth uint64 `toml:"finality-depth,omitempty"`
}

// TelemetryConfig is to marshal/unmarshal toml telemetry config vars
type TelemetryConfig struct {
	Enabled   bool                `toml:"enabled,omitempty"`
	Endpoints []TelemetryEndpoint `toml:"endpoints,omitempty"`
}

// TelemetryEndpoint is a telemetry server endpoint with its verbosity.
type TelemetryEndpoint struct {
	Endpoint  string `toml:"endpoint"`
	Verbosity int    `toml:"verbosity,omitempty"`
}

// PprofConfig contains the configuration for Pprof.
type PprofConfig struct {
	Enabled          bool   `toml:"enabled,omitempty"`
	ListeningAddress string `toml:"listening-address,omitempty"`
	BlockRate        int    `toml:"block-rate,omitempty"`
	MutexRate        int    `toml:"mutex-rate,omitempty"`
}
