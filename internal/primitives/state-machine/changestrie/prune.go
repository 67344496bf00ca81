// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package changestrie

import "github.com/ChainSafe/chainstate/dot/types"

// OldestChangesTrieBlock returns the number of the oldest block whose
// changes trie must be kept, given the finalized block number and the
// minimal number of blocks to keep. When digests are enabled only whole
// top level digest intervals are pruned, so that digests never reference
// pruned tries.
func OldestChangesTrieBlock(config types.ChangesTrieConfiguration,
	minBlocksToKeep, finalized uint64) uint64 {
	if !config.IsDigestBuildEnabled() {
		if finalized <= minBlocksToKeep {
			return 1
		}
		return finalized - minBlocksToKeep + 1
	}

	maxInterval := config.MaxDigestInterval()
	alignedFinalized := finalized - finalized%maxInterval
	if alignedFinalized == 0 {
		return 1
	}

	keepIntervals := minBlocksToKeep / maxInterval
	if keepIntervals == 0 {
		keepIntervals = 1
	}
	if keepIntervals > alignedFinalized/maxInterval {
		return 1
	}
	blocksToKeep := keepIntervals * maxInterval

	last := alignedFinalized - blocksToKeep
	if last < maxInterval {
		return 1
	}
	return last + 1
}
