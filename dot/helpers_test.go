// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"testing"
	"time"

	"github.com/ChainSafe/chainstate/internal/log"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Global.BasePath = t.TempDir()
	cfg.Global.LogLvl = log.Warn
	cfg.Global.MetricsAddress = "127.0.0.1:0"
	cfg.Client.CHTSize = 4
	cfg.Light.RetryWait = time.Millisecond
	cfg.Dev.BlockTime = 10 * time.Millisecond
	cfg.Pprof.Settings.ListeningAddress = "127.0.0.1:0"
	return cfg
}
