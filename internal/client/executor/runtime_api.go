// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
)

// EntryPoint describes a versioned runtime entry point and the codec of its
// arguments and result.
type EntryPoint[Args, Ret any] struct {
	// API is the name of the runtime API the entry point belongs to.
	API string
	// Version is the version of the API the codec is written for.
	Version uint32
	// Name is the method called in the runtime.
	Name   string
	Encode func(Args) ([]byte, error)
	Decode func([]byte) (Ret, error)
}

// APIID returns the identifier of a runtime API as reported in the runtime
// version: the first 8 bytes of the blake2b hash of its name.
func APIID(name string) (id [8]byte) {
	hash := common.MustBlake2bHash([]byte(name))
	copy(id[:], hash[:8])
	return id
}

// CallAPIAt calls the entry point at the block with the given strategy.
func CallAPIAt[Args, Ret any](callExecutor api.CallExecutor, at common.Hash, entry EntryPoint[Args, Ret],
	args Args, strategy statemachine.ExecutionStrategy) (ret Ret, err error) {
	data, err := entry.Encode(args)
	if err != nil {
		return ret, fmt.Errorf("encoding arguments of %s: %w", entry.Name, err)
	}
	result, err := callExecutor.Call(at, entry.Name, data, strategy)
	if err != nil {
		return ret, err
	}
	return entry.Decode(result)
}

// CallAPIInContext calls the entry point at the block, keeping its changes
// in overlay.
func CallAPIInContext[Args, Ret any](callExecutor api.CallExecutor, at common.Hash, entry EntryPoint[Args, Ret],
	args Args, overlay *statemachine.OverlayedChanges, initializeBlock *types.Header,
	manager statemachine.ExecutionManager) (ret Ret, err error) {
	data, err := entry.Encode(args)
	if err != nil {
		return ret, fmt.Errorf("encoding arguments of %s: %w", entry.Name, err)
	}
	result, err := callExecutor.ContextualCall(at, entry.Name, data, overlay, initializeBlock, manager)
	if err != nil {
		return ret, err
	}
	return entry.Decode(result)
}

// HasAPI returns true if the runtime at the block implements the version of
// the API the entry point is written for.
func HasAPI[Args, Ret any](callExecutor api.CallExecutor, at common.Hash, entry EntryPoint[Args, Ret]) (bool, error) {
	version, err := callExecutor.RuntimeVersion(at)
	if err != nil {
		return false, err
	}
	return version.HasAPI(APIID(entry.API), entry.Version), nil
}

// Nothing is the arguments or result of entry points without any.
type Nothing struct{}

func encodeNothing(Nothing) ([]byte, error) { return nil, nil }

func decodeNothing(data []byte) (Nothing, error) {
	if len(data) != 0 {
		return Nothing{}, fmt.Errorf("%d unexpected bytes in result", len(data))
	}
	return Nothing{}, nil
}

func encodePointer[T any](value *T) ([]byte, error) {
	return types.Encode(*value)
}

const (
	// CoreAPI is the API every runtime implements.
	CoreAPI = "Core"
	// BlockBuilderAPI is the API used to build blocks.
	BlockBuilderAPI = "BlockBuilder"
)

// CoreVersion returns the runtime version.
var CoreVersion = EntryPoint[Nothing, types.RuntimeVersion]{
	API:     CoreAPI,
	Version: 1,
	Name:    "Core_version",
	Encode:  encodeNothing,
	Decode: func(data []byte) (version types.RuntimeVersion, err error) {
		err = types.Decode(data, &version)
		if err != nil {
			return version, fmt.Errorf("%w: %s", blockchain.ErrVersionInvalid, err)
		}
		return version, nil
	},
}

// CoreExecuteBlock executes a block on top of the state of its parent.
var CoreExecuteBlock = EntryPoint[*types.Block, Nothing]{
	API:     CoreAPI,
	Version: 1,
	Name:    "Core_execute_block",
	Encode:  encodePointer[types.Block],
	Decode:  decodeNothing,
}

// CoreInitializeBlock initializes the building of the block of the header.
var CoreInitializeBlock = EntryPoint[*types.Header, Nothing]{
	API:     CoreAPI,
	Version: 1,
	Name:    "Core_initialize_block",
	Encode:  encodePointer[types.Header],
	Decode:  decodeNothing,
}

// ApplyExtrinsicResult is the byte returned by BlockBuilder_apply_extrinsic.
type ApplyExtrinsicResult byte

const (
	// ApplyExtrinsicOk is returned for an applied extrinsic.
	ApplyExtrinsicOk ApplyExtrinsicResult = 0
	// ApplyExtrinsicFailed is returned for an extrinsic the runtime rejected.
	ApplyExtrinsicFailed ApplyExtrinsicResult = 1
)

// BlockBuilderApplyExtrinsic applies an extrinsic to the block being
// built. A rejected extrinsic fails with blockchain.ErrApplyExtrinsicFailed.
var BlockBuilderApplyExtrinsic = EntryPoint[types.Extrinsic, Nothing]{
	API:     BlockBuilderAPI,
	Version: 1,
	Name:    "BlockBuilder_apply_extrinsic",
	Encode: func(extrinsic types.Extrinsic) ([]byte, error) {
		return common.CopyBytes(extrinsic), nil
	},
	Decode: func(data []byte) (Nothing, error) {
		if len(data) != 1 {
			return Nothing{}, fmt.Errorf("apply extrinsic result has %d bytes", len(data))
		}
		switch ApplyExtrinsicResult(data[0]) {
		case ApplyExtrinsicOk:
			return Nothing{}, nil
		case ApplyExtrinsicFailed:
			return Nothing{}, blockchain.ErrApplyExtrinsicFailed
		default:
			return Nothing{}, fmt.Errorf("unknown apply extrinsic result %d", data[0])
		}
	},
}

// BlockBuilderFinalizeBlock finishes the block being built and returns its
// header. The extrinsics root is left to the caller.
var BlockBuilderFinalizeBlock = EntryPoint[Nothing, *types.Header]{
	API:     BlockBuilderAPI,
	Version: 1,
	Name:    "BlockBuilder_finalize_block",
	Encode:  encodeNothing,
	Decode:  types.DecodeHeader,
}
