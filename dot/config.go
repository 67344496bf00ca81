// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"encoding/json"
	"time"

	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/internal/client/light"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/pprof"
	"github.com/ChainSafe/chainstate/lib/utils"
)

// Config is a collection of configurations throughout the system
type Config struct {
	Global    GlobalConfig
	Log       LogConfig
	Client    ClientConfig
	Light     LightConfig
	Dev       DevConfig
	Telemetry TelemetryConfig
	Pprof     PprofConfig
}

// GlobalConfig is used for every node command
type GlobalConfig struct {
	Name           string
	BasePath       string
	LogLvl         log.Level
	PublishMetrics bool
	MetricsAddress string
}

// LogConfig represents the log levels for individual packages
type LogConfig struct {
	ClientLvl       log.Level
	DBLvl           log.Level
	LightLvl        log.Level
	InMemoryLvl     log.Level
	ExecutorLvl     log.Level
	BlockBuilderLvl log.Level
}

// ClientConfig configures the full and light clients.
type ClientConfig struct {
	FinalityNotificationLimit uint
	// StatePruning is the number of finalized states kept by the full
	// client. All states are kept when it is nil.
	StatePruning    *uint64
	HeaderCacheSize int
	CHTSize         uint64
}

// LightConfig configures the remote requests of the light client.
type LightConfig struct {
	RetryCount uint
	RetryWait  time.Duration
}

// DevConfig configures the development chain authored by the node.
type DevConfig struct {
	BlockTime     time.Duration
	FinalityDepth uint64
}

// TelemetryConfig lists the telemetry endpoints.
type TelemetryConfig struct {
	Enabled   bool
	Endpoints []*telemetry.Endpoint
}

// PprofConfig is the configuration for the pprof HTTP server.
type PprofConfig struct {
	Enabled  bool
	Settings pprof.Settings
}

// String will return the json representation for a Config
func (c *Config) String() string {
	out, _ := json.MarshalIndent(c, "", "\t")
	return string(out)
}

// DefaultConfig returns the default node configuration.
func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			Name:           "chainstate",
			BasePath:       utils.BasePath("dev"),
			LogLvl:         log.Info,
			MetricsAddress: "localhost:9876",
		},
		Log: LogConfig{
			ClientLvl:       log.Info,
			DBLvl:           log.Info,
			LightLvl:        log.Info,
			InMemoryLvl:     log.Info,
			ExecutorLvl:     log.Info,
			BlockBuilderLvl: log.Info,
		},
		Client: ClientConfig{
			HeaderCacheSize: 1024,
		},
		Light: LightConfig{
			RetryCount: light.DefaultRetryCount,
			RetryWait:  time.Second,
		},
		Dev: DevConfig{
			BlockTime:     6 * time.Second,
			FinalityDepth: 2,
		},
		Pprof: PprofConfig{
			Settings: pprof.Settings{
				ListeningAddress: pprof.DefaultListeningAddress,
			},
		},
	}
}
