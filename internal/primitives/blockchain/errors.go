// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBlock is returned when a block lookup fails.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrBackend is a storage layer failure, including decoding errors.
	ErrBackend = errors.New("backend error")
	// ErrInvalidCHTProof is returned when a CHT proof does not verify.
	ErrInvalidCHTProof = errors.New("invalid CHT proof")
	// ErrInvalidAuthoritiesSet is returned for a malformed authorities set.
	ErrInvalidAuthoritiesSet = errors.New("current state of blockchain has invalid authorities set")
	// ErrVersionInvalid is returned when the runtime version cannot be
	// decoded or is not acceptable.
	ErrVersionInvalid = errors.New("runtime version is invalid")
	// ErrGenesisInvalid is returned when the stored genesis does not match
	// the genesis built from the supplied storage.
	ErrGenesisInvalid = errors.New("provided genesis is invalid")
	// ErrJustificationDecode is returned when a justification cannot be decoded.
	ErrJustificationDecode = errors.New("error decoding justification for header")
	// ErrBadJustification is returned when a justification fails verification.
	ErrBadJustification = errors.New("bad justification for header")
	// ErrApplyExtrinsicFailed is a deterministic rejection of an extrinsic by
	// the runtime.
	ErrApplyExtrinsicFailed = errors.New("extrinsic is not valid")
	// ErrNotAvailableOnLightClient is returned for operations a light client
	// cannot serve.
	ErrNotAvailableOnLightClient = errors.New("this method is not currently available when running in light client mode")
	// ErrNotInFinalizedChain is returned when finalizing a block that would
	// revert an already finalized block.
	ErrNotInFinalizedChain = errors.New("potential long-range attack: block not in finalized chain")
	// ErrNonSequentialFinalization is returned when finalizing a block that
	// is not a direct descendant of the last finalized block.
	ErrNonSequentialFinalization = errors.New("did not finalize blocks in sequential order")
	// ErrMissingHashRequiredForCHT is returned when a CHT cannot be built
	// because a block hash of its group is missing.
	ErrMissingHashRequiredForCHT = errors.New("failed to get hash of block for building CHT")
	// ErrChangesTrieAccessFailed is returned when a changes trie query fails.
	ErrChangesTrieAccessFailed = errors.New("failed to check changes proof")
	// ErrChangesTriesNotSupported is returned when changes tries are not
	// enabled for the chain.
	ErrChangesTriesNotSupported = errors.New("changes tries are not supported by the runtime")
	// ErrRemoteFetchCancelled is returned when a remote fetch was cancelled.
	ErrRemoteFetchCancelled = errors.New("remote data fetch has been cancelled")
	// ErrRemoteFetchFailed is returned when a remote fetch failed, including
	// when all retries are exhausted.
	ErrRemoteFetchFailed = errors.New("remote data fetch has been failed")

	// ErrUnknownParent is returned when importing a block whose parent is
	// not in the chain.
	ErrUnknownParent = errors.New("parent block is not in chain")
	// ErrAlreadyInChain is returned when importing a block that is already
	// in the chain.
	ErrAlreadyInChain = errors.New("block already in chain")
	// ErrExecutionFailed is returned when the runtime fails to execute a call.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrConsensusMismatch is returned when native and on-chain execution
	// of a block disagree.
	ErrConsensusMismatch = errors.New("native and on-chain execution results differ")
)

// UnknownBlockError returns an error wrapping ErrUnknownBlock with details.
func UnknownBlockError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnknownBlock, fmt.Sprintf(format, args...))
}

// BackendError returns an error wrapping ErrBackend with details.
func BackendError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBackend, fmt.Sprintf(format, args...))
}

// MissingHashRequiredForCHTError returns an error wrapping
// ErrMissingHashRequiredForCHT for the given CHT and block numbers.
func MissingHashRequiredForCHTError(chtNumber, blockNumber uint64) error {
	return fmt.Errorf("%w: CHT %d, block %d", ErrMissingHashRequiredForCHT, chtNumber, blockNumber)
}

// ChangesTrieAccessFailedError returns an error wrapping
// ErrChangesTrieAccessFailed with details.
func ChangesTrieAccessFailedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrChangesTrieAccessFailed, fmt.Sprintf(format, args...))
}
