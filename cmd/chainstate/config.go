// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ChainSafe/chainstate/dot"
	ctoml "github.com/ChainSafe/chainstate/dot/config/toml"
	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/lib/utils"
	"github.com/naoina/toml"
	"github.com/urfave/cli"
)

// loadConfig loads the contents of the toml file at fp into cfg
func loadConfig(cfg *ctoml.Config, fp string) (err error) {
	fp, err = filepath.Abs(fp)
	if err != nil {
		return fmt.Errorf("finding absolute path of %s: %w", fp, err)
	}

	f, err := os.Open(filepath.Clean(fp))
	if err != nil {
		return fmt.Errorf("opening configuration file: %w", err)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil {
			logger.Warnf("failed to close configuration file: %s", closeErr)
		}
	}()

	err = toml.NewDecoder(f).Decode(cfg)
	if err != nil {
		return fmt.Errorf("decoding toml configuration: %w", err)
	}
	return nil
}

// createDotConfig creates a node configuration from the defaults, the
// toml configuration file given with --config and the flags, in increasing
// order of precedence.
func createDotConfig(ctx *cli.Context) (*dot.Config, error) {
	tomlCfg := new(ctoml.Config)
	if fp := ctx.String(ConfigFlag.Name); fp != "" {
		logger.Info("loading toml configuration from " + fp + "...")
		err := loadConfig(tomlCfg, fp)
		if err != nil {
			return nil, err
		}
	}

	cfg := dot.DefaultConfig()
	err := setLogConfig(ctx, tomlCfg, &cfg.Global, &cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setting log configuration: %w", err)
	}

	setDotGlobalConfig(ctx, tomlCfg.Global, &cfg.Global)

	err = setDotClientConfig(ctx, tomlCfg.Client, &cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("setting client configuration: %w", err)
	}

	err = setDotLightConfig(ctx, tomlCfg.Light, &cfg.Light)
	if err != nil {
		return nil, fmt.Errorf("setting light configuration: %w", err)
	}

	err = setDotDevConfig(ctx, tomlCfg.Dev, &cfg.Dev)
	if err != nil {
		return nil, fmt.Errorf("setting development chain configuration: %w", err)
	}

	err = setDotTelemetryConfig(ctx, tomlCfg.Telemetry, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setting telemetry configuration: %w", err)
	}

	setDotPprofConfig(ctx, tomlCfg.Pprof, &cfg.Pprof)
	return cfg, nil
}

type stringKVStore interface {
	String(key string) (value string)
}

// getLogLevel obtains the log level in the following order:
// 1. Try to obtain it from the flag value corresponding to flagName.
// 2. Try to obtain it from the TOML value given, if step 1. failed.
// 3. Return the default value given if both previous steps failed.
func getLogLevel(flagsKVStore stringKVStore, flagName, tomlValue string, defaultLevel log.Level) (
	level log.Level, err error) {
	if flagValue := flagsKVStore.String(flagName); flagValue != "" {
		return parseLogLevelString(flagValue)
	}

	if tomlValue == "" {
		return defaultLevel, nil
	}

	return parseLogLevelString(tomlValue)
}

// ErrLogLevelIntegerOutOfRange is returned for a log level integer not
// matching a level.
var ErrLogLevelIntegerOutOfRange = errors.New("log level integer can only be between 0 and 5 included")

func parseLogLevelString(logLevelString string) (logLevel log.Level, err error) {
	levelInt, err := strconv.Atoi(logLevelString)
	if err == nil { // level given as an integer
		if levelInt < 0 || levelInt > 5 {
			return 0, fmt.Errorf("%w: log level given: %d", ErrLogLevelIntegerOutOfRange, levelInt)
		}
		logLevel = log.Level(levelInt)
		return logLevel, nil
	}

	logLevel, err = log.ParseLevel(logLevelString)
	if err != nil {
		return 0, fmt.Errorf("cannot parse log level string: %w", err)
	}

	return logLevel, nil
}

// setLogConfig sets the global log level, and the package log levels
// defaulting to it.
func setLogConfig(flagsKVStore stringKVStore, tomlConfig *ctoml.Config,
	globalCfg *dot.GlobalConfig, logCfg *dot.LogConfig) (err error) {
	if tomlConfig == nil {
		tomlConfig = new(ctoml.Config)
	}

	globalCfg.LogLvl, err = getLogLevel(flagsKVStore, LogFlag.Name, tomlConfig.Global.LogLvl, log.Info)
	if err != nil {
		return fmt.Errorf("cannot get global log level: %w", err)
	}

	levelsData := []struct {
		name      string
		flagName  string
		tomlValue string
		levelPtr  *log.Level
	}{
		{
			name:      "client",
			flagName:  LogClientLevelFlag.Name,
			tomlValue: tomlConfig.Log.ClientLvl,
			levelPtr:  &logCfg.ClientLvl,
		},
		{
			name:      "db",
			flagName:  LogDBLevelFlag.Name,
			tomlValue: tomlConfig.Log.DBLvl,
			levelPtr:  &logCfg.DBLvl,
		},
		{
			name:      "light",
			flagName:  LogLightLevelFlag.Name,
			tomlValue: tomlConfig.Log.LightLvl,
			levelPtr:  &logCfg.LightLvl,
		},
		{
			name:      "inmemory",
			flagName:  LogInMemoryLevelFlag.Name,
			tomlValue: tomlConfig.Log.InMemoryLvl,
			levelPtr:  &logCfg.InMemoryLvl,
		},
		{
			name:      "executor",
			flagName:  LogExecutorLevelFlag.Name,
			tomlValue: tomlConfig.Log.ExecutorLvl,
			levelPtr:  &logCfg.ExecutorLvl,
		},
		{
			name:      "block builder",
			flagName:  LogBlockBuilderLevelFlag.Name,
			tomlValue: tomlConfig.Log.BlockBuilderLvl,
			levelPtr:  &logCfg.BlockBuilderLvl,
		},
	}

	for _, levelData := range levelsData {
		level, err := getLogLevel(flagsKVStore, levelData.flagName, levelData.tomlValue, globalCfg.LogLvl)
		if err != nil {
			return fmt.Errorf("cannot get %s log level: %w", levelData.name, err)
		}
		*levelData.levelPtr = level
	}

	logger.Debugf("set log configuration: --log %s global %s", flagsKVStore.String(LogFlag.Name), globalCfg.LogLvl)
	return nil
}

// setDotGlobalConfig sets dot.GlobalConfig using the toml configuration
// and the flag values from the cli context
func setDotGlobalConfig(ctx *cli.Context, tomlCfg ctoml.GlobalConfig, cfg *dot.GlobalConfig) {
	if tomlCfg.Name != "" {
		cfg.Name = tomlCfg.Name
	}
	if tomlCfg.BasePath != "" {
		cfg.BasePath = tomlCfg.BasePath
	}
	if tomlCfg.MetricsAddress != "" {
		cfg.MetricsAddress = tomlCfg.MetricsAddress
	}
	cfg.PublishMetrics = tomlCfg.PublishMetrics

	if name := ctx.String(NameFlag.Name); name != "" {
		cfg.Name = name
	}
	if basepath := ctx.String(BasePathFlag.Name); basepath != "" {
		cfg.BasePath = basepath
	}
	if ctx.Bool(PublishMetricsFlag.Name) {
		cfg.PublishMetrics = true
	}

	// check --metrics-address flag and update node configuration
	if metricsAddress := ctx.String(MetricsAddressFlag.Name); metricsAddress != "" {
		port, err := strconv.Atoi(metricsAddress)
		if err != nil {
			cfg.MetricsAddress = metricsAddress
		} else {
			cfg.MetricsAddress = ":" + fmt.Sprint(port)
		}
	}

	cfg.BasePath = utils.ExpandDir(cfg.BasePath)
	logger.Debug("global configuration has name " + cfg.Name + " and base path " + cfg.BasePath)
}

// parseStatePruning parses a number of kept states, or archive to keep
// all the states.
func parseStatePruning(s string) (*uint64, error) {
	if s == "archive" {
		return nil, nil //nolint:nilnil
	}
	kept, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing state pruning %q: %w", s, err)
	}
	return &kept, nil
}

func setDotClientConfig(ctx *cli.Context, tomlCfg ctoml.ClientConfig, cfg *dot.ClientConfig) error {
	if tomlCfg.FinalityNotificationLimit != 0 {
		cfg.FinalityNotificationLimit = tomlCfg.FinalityNotificationLimit
	}
	if tomlCfg.StatePruning != nil {
		kept := *tomlCfg.StatePruning
		cfg.StatePruning = &kept
	}
	if tomlCfg.HeaderCacheSize != 0 {
		cfg.HeaderCacheSize = tomlCfg.HeaderCacheSize
	}
	if tomlCfg.CHTSize != 0 {
		cfg.CHTSize = tomlCfg.CHTSize
	}

	if s := ctx.String(StatePruningFlag.Name); s != "" {
		kept, err := parseStatePruning(s)
		if err != nil {
			return err
		}
		cfg.StatePruning = kept
	}
	return nil
}

func setDotLightConfig(ctx *cli.Context, tomlCfg ctoml.LightConfig, cfg *dot.LightConfig) error {
	if tomlCfg.RetryCount != 0 {
		cfg.RetryCount = tomlCfg.RetryCount
	}
	if tomlCfg.RetryWait != "" {
		retryWait, err := time.ParseDuration(tomlCfg.RetryWait)
		if err != nil {
			return fmt.Errorf("parsing retry wait: %w", err)
		}
		cfg.RetryWait = retryWait
	}

	if ctx.IsSet(RetryCountFlag.Name) {
		cfg.RetryCount = ctx.Uint(RetryCountFlag.Name)
	}
	return nil
}

func setDotDevConfig(ctx *cli.Context, tomlCfg ctoml.DevConfig, cfg *dot.DevConfig) error {
	if tomlCfg.BlockTime != "" {
		blockTime, err := time.ParseDuration(tomlCfg.BlockTime)
		if err != nil {
			return fmt.Errorf("parsing block time: %w", err)
		}
		cfg.BlockTime = blockTime
	}
	if tomlCfg.FinalityDepth != 0 {
		cfg.FinalityDepth = tomlCfg.FinalityDepth
	}

	if blockTime := ctx.Duration(BlockTimeFlag.Name); blockTime != 0 {
		cfg.BlockTime = blockTime
	}
	if ctx.IsSet(FinalityDepthFlag.Name) {
		cfg.FinalityDepth = ctx.Uint64(FinalityDepthFlag.Name)
	}

	if cfg.BlockTime <= 0 {
		return fmt.Errorf("block time must be positive: %s", cfg.BlockTime)
	}
	return nil
}

// ErrTelemetryURLFormat is returned for a telemetry URL flag value which
// is not a URL followed by a verbosity.
var ErrTelemetryURLFormat = errors.New("telemetry url must be in the format 'URL VERBOSITY'")

func setDotTelemetryConfig(ctx *cli.Context, tomlCfg ctoml.TelemetryConfig, cfg *dot.TelemetryConfig) error {
	cfg.Enabled = tomlCfg.Enabled
	for _, endpoint := range tomlCfg.Endpoints {
		cfg.Endpoints = append(cfg.Endpoints, &telemetry.Endpoint{
			Endpoint:  endpoint.Endpoint,
			Verbosity: endpoint.Verbosity,
		})
	}

	for _, telemetryURL := range ctx.StringSlice(TelemetryURLFlag.Name) {
		splits := strings.Split(telemetryURL, " ")
		if len(splits) != 2 {
			return fmt.Errorf("%w: %q", ErrTelemetryURLFormat, telemetryURL)
		}

		verbosity, err := strconv.Atoi(splits[1])
		if err != nil {
			return fmt.Errorf("could not parse verbosity from %s: %w", TelemetryURLFlag.Name, err)
		}

		cfg.Enabled = true
		cfg.Endpoints = append(cfg.Endpoints, &telemetry.Endpoint{
			Endpoint:  splits[0],
			Verbosity: verbosity,
		})
	}
	return nil
}

func setDotPprofConfig(ctx *cli.Context, tomlCfg ctoml.PprofConfig, cfg *dot.PprofConfig) {
	// Flag takes precedence over TOML config, default is ignored.
	if ctx.IsSet(PprofServerFlag.Name) {
		cfg.Enabled = ctx.Bool(PprofServerFlag.Name)
	} else {
		cfg.Enabled = tomlCfg.Enabled
	}

	if tomlCfg.ListeningAddress != "" {
		cfg.Settings.ListeningAddress = tomlCfg.ListeningAddress
	}

	if tomlCfg.BlockRate > 0 {
		// block rate must be 0 (disabled) by default, since we
		// cannot disable it here.
		cfg.Settings.BlockProfileRate = tomlCfg.BlockRate
	}

	if tomlCfg.MutexRate > 0 {
		// mutex rate must be 0 (disabled) by default, since we
		// cannot disable it here.
		cfg.Settings.MutexProfileRate = tomlCfg.MutexRate
	}

	// check --pprofaddress flag and update node configuration
	if address := ctx.String(PprofAddressFlag.Name); address != "" {
		cfg.Settings.ListeningAddress = address
	}

	if rate := ctx.Int(PprofBlockRateFlag.Name); rate > 0 {
		cfg.Settings.BlockProfileRate = rate
	}

	if rate := ctx.Int(PprofMutexRateFlag.Name); rate > 0 {
		cfg.Settings.MutexProfileRate = rate
	}
}

// dotConfigToToml converts a node configuration to its toml configuration.
func dotConfigToToml(cfg *dot.Config) *ctoml.Config {
	tomlCfg := &ctoml.Config{
		Global: ctoml.GlobalConfig{
			Name:           cfg.Global.Name,
			BasePath:       cfg.Global.BasePath,
			LogLvl:         cfg.Global.LogLvl.String(),
			PublishMetrics: cfg.Global.PublishMetrics,
			MetricsAddress: cfg.Global.MetricsAddress,
		},
		Log: ctoml.LogConfig{
			ClientLvl:       cfg.Log.ClientLvl.String(),
			DBLvl:           cfg.Log.DBLvl.String(),
			LightLvl:        cfg.Log.LightLvl.String(),
			InMemoryLvl:     cfg.Log.InMemoryLvl.String(),
			ExecutorLvl:     cfg.Log.ExecutorLvl.String(),
			BlockBuilderLvl: cfg.Log.BlockBuilderLvl.String(),
		},
		Client: ctoml.ClientConfig{
			FinalityNotificationLimit: cfg.Client.FinalityNotificationLimit,
			StatePruning:              cfg.Client.StatePruning,
			HeaderCacheSize:           cfg.Client.HeaderCacheSize,
			CHTSize:                   cfg.Client.CHTSize,
		},
		Light: ctoml.LightConfig{
			RetryCount: cfg.Light.RetryCount,
			RetryWait:  cfg.Light.RetryWait.String(),
		},
		Dev: ctoml.DevConfig{
			BlockTime:     cfg.Dev.BlockTime.String(),
			FinalityDepth: cfg.Dev.FinalityDepth,
		},
		Telemetry: ctoml.TelemetryConfig{
			Enabled: cfg.Telemetry.Enabled,
		},
		Pprof: ctoml.PprofConfig{
			Enabled:          cfg.Pprof.Enabled,
			ListeningAddress: cfg.Pprof.Settings.ListeningAddress,
			BlockRate:        cfg.Pprof.Settings.BlockProfileRate,
			MutexRate:        cfg.Pprof.Settings.MutexProfileRate,
		},
	}

	for _, endpoint := range cfg.Telemetry.Endpoints {
		tomlCfg.Telemetry.Endpoints = append(tomlCfg.Telemetry.Endpoints, ctoml.TelemetryEndpoint{
			Endpoint:  endpoint.Endpoint,
			Verbosity: endpoint.Verbosity,
		})
	}
	return tomlCfg
}
