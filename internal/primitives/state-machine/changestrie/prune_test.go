// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package changestrie

import (
	"testing"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/stretchr/testify/assert"
)

func Test_OldestChangesTrieBlock(t *testing.T) {
	t.Parallel()

	noDigests := types.ChangesTrieConfiguration{}
	digests := types.ChangesTrieConfiguration{DigestInterval: 4, DigestLevels: 2}

	testCases := map[string]struct {
		config          types.ChangesTrieConfiguration
		minBlocksToKeep uint64
		finalized       uint64
		oldest          uint64
	}{
		"no_digests_nothing_to_prune": {
			config:          noDigests,
			minBlocksToKeep: 16,
			finalized:       16,
			oldest:          1,
		},
		"no_digests_first_prunable": {
			config:          noDigests,
			minBlocksToKeep: 16,
			finalized:       17,
			oldest:          2,
		},
		"no_digests_far": {
			config:          noDigests,
			minBlocksToKeep: 10,
			finalized:       100,
			oldest:          91,
		},
		"digests_finalized_below_interval": {
			config:          digests,
			minBlocksToKeep: 16,
			finalized:       15,
			oldest:          1,
		},
		"digests_one_interval_kept": {
			config:          digests,
			minBlocksToKeep: 16,
			finalized:       32,
			oldest:          17,
		},
		"digests_unaligned_finalized": {
			config:          digests,
			minBlocksToKeep: 16,
			finalized:       47,
			oldest:          17,
		},
		"digests_keep_rounded_down_to_intervals": {
			config:          digests,
			minBlocksToKeep: 40,
			finalized:       64,
			oldest:          33,
		},
		"digests_keep_below_interval": {
			config:          digests,
			minBlocksToKeep: 1,
			finalized:       48,
			oldest:          33,
		},
		"digests_last_below_interval": {
			config:          digests,
			minBlocksToKeep: 16,
			finalized:       16,
			oldest:          1,
		},
		"digests_keep_above_finalized": {
			config:          digests,
			minBlocksToKeep: 160,
			finalized:       64,
			oldest:          1,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			oldest := OldestChangesTrieBlock(testCase.config,
				testCase.minBlocksToKeep, testCase.finalized)

			assert.Equal(t, testCase.oldest, oldest)
		})
	}
}
