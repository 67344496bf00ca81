// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"os"
	"path/filepath"
	"testing"

	ctoml "github.com/ChainSafe/chainstate/dot/config/toml"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config_String(t *testing.T) {
	t.Parallel()

	s := DefaultConfig().String()
	assert.Contains(t, s, `"Name": "chainstate"`)
	assert.Contains(t, s, `"FinalityDepth": 2`)
}

func Test_ExportTomlConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := &ctoml.Config{
		Global: ctoml.GlobalConfig{Name: "node", LogLvl: log.Debug.String()},
		Light:  ctoml.LightConfig{RetryCount: 3},
	}

	err := ExportTomlConfig(cfg, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `name = "node"`)
	assert.Contains(t, string(data), "retry-count = 3")

	err = ExportTomlConfig(cfg, filepath.Join(t.TempDir(), "missing", "config.toml"))
	assert.Error(t, err)
}
