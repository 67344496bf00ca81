// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package executor

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/log"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "executor"))

const defaultRuntimeCacheSize = 8

// Runtime is an instance of runtime code.
type Runtime interface {
	Version() types.RuntimeVersion
	Call(ext *statemachine.Ext, method string, data []byte) ([]byte, error)
}

// Loader instantiates the on-chain runtime code.
type Loader func(code []byte) (Runtime, error)

// Executor runs calls with the runtime code stored under :code, or with the
// native runtime when it can stand in for it.
type Executor struct {
	native   Runtime
	load     Loader
	runtimes *lru.Cache[common.Hash, Runtime]
}

// NewExecutor returns an executor. native may be nil. Instances of the
// on-chain code are cached by code hash, up to cacheSize of them, or 8 if
// cacheSize is zero.
func NewExecutor(native Runtime, load Loader, cacheSize int) *Executor {
	if cacheSize <= 0 {
		cacheSize = defaultRuntimeCacheSize
	}
	runtimes, err := lru.New[common.Hash, Runtime](cacheSize)
	if err != nil {
		panic(err)
	}
	return &Executor{
		native:   native,
		load:     load,
		runtimes: runtimes,
	}
}

// NativeVersion returns the version of the native runtime, if any.
func (e *Executor) NativeVersion() (types.RuntimeVersion, bool) {
	if e.native == nil {
		return types.RuntimeVersion{}, false
	}
	return e.native.Version(), true
}

// Call implements statemachine.CodeExecutor.
func (e *Executor) Call(ext *statemachine.Ext, method string, data []byte, useNative bool) (
	result []byte, native bool, err error) {
	onchain, err := e.onchainRuntime(ext)
	if err != nil {
		return nil, false, err
	}

	if useNative && e.native != nil {
		nativeVersion, onchainVersion := e.native.Version(), onchain.Version()
		if nativeVersion.CanCallWith(onchainVersion) {
			result, err = e.native.Call(ext, method, data)
			return result, true, err
		}
		logger.Debugf("native runtime %s cannot call into on-chain runtime %s", nativeVersion, onchainVersion)
	}

	result, err = onchain.Call(ext, method, data)
	return result, false, err
}

func (e *Executor) onchainRuntime(ext *statemachine.Ext) (Runtime, error) {
	code, err := ext.Storage(common.CodeKey)
	if err != nil {
		return nil, fmt.Errorf("reading runtime code: %w", err)
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}

	codeHash, err := common.Blake2bHash(code)
	if err != nil {
		return nil, err
	}
	if runtime, ok := e.runtimes.Get(codeHash); ok {
		return runtime, nil
	}

	runtime, err := e.load(code)
	if err != nil {
		return nil, fmt.Errorf("loading runtime code %s: %w", codeHash.Short(), err)
	}
	e.runtimes.Add(codeHash, runtime)
	logger.Debugf("loaded runtime %s with code hash %s", runtime.Version(), codeHash.Short())
	return runtime, nil
}
