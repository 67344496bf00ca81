// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"fmt"
	"os"

	ctoml "github.com/ChainSafe/chainstate/dot/config/toml"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/naoina/toml"
)

// ExportTomlConfig exports a toml configuration to the file at fp
func ExportTomlConfig(cfg *ctoml.Config, fp string) error {
	raw, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}
	err = os.WriteFile(fp, raw, 0600)
	if err != nil {
		return fmt.Errorf("writing configuration file: %w", err)
	}
	return nil
}

// setupLogger sets the global and per package log levels
func setupLogger(cfg *Config) {
	log.Patch(log.SetLevel(cfg.Global.LogLvl))
	packageLevels := map[string]log.Level{
		"client":        cfg.Log.ClientLvl,
		"db":            cfg.Log.DBLvl,
		"light":         cfg.Log.LightLvl,
		"inmemory":      cfg.Log.InMemoryLvl,
		"executor":      cfg.Log.ExecutorLvl,
		"block-builder": cfg.Log.BlockBuilderLvl,
	}
	for pkg, level := range packageLevels {
		log.PatchPackage(pkg, log.SetLevel(level))
	}
}
