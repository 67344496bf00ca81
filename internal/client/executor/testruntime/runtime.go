// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package testruntime is a runtime implemented in Go, used as both the native
// and the on-chain runtime of test chains. Its code is its SCALE encoded
// version behind a fixed prefix.
package testruntime

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
)

var (
	errMethodNotFound   = errors.New("method not found")
	errInvalidCode      = errors.New("invalid test runtime code")
	errStateRoot        = errors.New("storage root does not match header")
	errExtrinsicsRoot   = errors.New("extrinsics root does not match header")
	errChangesTrieRoot  = errors.New("changes trie root does not match header")
	errExtrinsicApplied = errors.New("extrinsic failed during block execution")
)

var codePrefix = []byte("chainstate-test-runtime:")

// ParentHashKey holds the parent hash of the block being built.
var ParentHashKey = []byte(":parent_hash")

// Runtime is the test runtime.
type Runtime struct {
	version types.RuntimeVersion
}

// New returns a runtime reporting version.
func New(version types.RuntimeVersion) *Runtime {
	return &Runtime{version: version}
}

// DefaultVersion returns the version of the test runtime.
func DefaultVersion() types.RuntimeVersion {
	return types.RuntimeVersion{
		SpecName:         "test",
		ImplName:         "chainstate-test",
		AuthoringVersion: 1,
		SpecVersion:      1,
		ImplVersion:      1,
		APIItems: []types.APIItem{
			{Name: apiID("Core"), Ver: 1},
			{Name: apiID("BlockBuilder"), Ver: 1},
		},
	}
}

func apiID(name string) (id [8]byte) {
	hash := common.MustBlake2bHash([]byte(name))
	copy(id[:], hash[:8])
	return id
}

// Code returns the on-chain code of a runtime reporting version.
func Code(version types.RuntimeVersion) []byte {
	encoded, err := types.Encode(version)
	if err != nil {
		panic(err)
	}
	return append(common.CopyBytes(codePrefix), encoded...)
}

// Load instantiates on-chain code returned by Code.
func Load(code []byte) (*Runtime, error) {
	if !bytes.HasPrefix(code, codePrefix) {
		return nil, errInvalidCode
	}
	var version types.RuntimeVersion
	err := types.Decode(code[len(codePrefix):], &version)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidCode, err)
	}
	return New(version), nil
}

// Version returns the runtime version.
func (r *Runtime) Version() types.RuntimeVersion {
	return r.version
}

// Call executes method.
func (r *Runtime) Call(ext *statemachine.Ext, method string, data []byte) ([]byte, error) {
	switch method {
	case "Core_version":
		return types.Encode(r.version)
	case "Core_initialize_block":
		header, err := types.DecodeHeader(data)
		if err != nil {
			return nil, err
		}
		return nil, initializeBlock(ext, header)
	case "Core_execute_block":
		block := new(types.Block)
		err := types.Decode(data, block)
		if err != nil {
			return nil, err
		}
		return nil, executeBlock(ext, block)
	case "BlockBuilder_apply_extrinsic":
		ok, err := applyExtrinsic(ext, data)
		if err != nil {
			return nil, err
		}
		if !ok {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case "BlockBuilder_finalize_block":
		header, err := finalizeBlock(ext)
		if err != nil {
			return nil, err
		}
		return header.Bytes(), nil
	case "Test_impl_name":
		return []byte(r.version.ImplName), nil
	case "Test_read":
		return ext.Storage(data)
	}
	return nil, fmt.Errorf("%w: %s", errMethodNotFound, method)
}

func initializeBlock(ext *statemachine.Ext, header *types.Header) error {
	ext.ClearExtrinsicIndex()
	number := make([]byte, 8)
	binary.LittleEndian.PutUint64(number, header.Number)
	for _, kv := range [][2][]byte{
		{common.BlockNumberKey, number},
		{ParentHashKey, header.ParentHash.ToBytes()},
		{common.ExtrinsicIndexKey, make([]byte, 4)},
	} {
		err := ext.SetStorage(kv[0], kv[1])
		if err != nil {
			return err
		}
	}
	return nil
}

func applyExtrinsic(ext *statemachine.Ext, data []byte) (ok bool, err error) {
	decoded, err := decodeExtrinsic(data)
	if err != nil {
		return false, err
	}

	encodedIndex, err := ext.Storage(common.ExtrinsicIndexKey)
	if err != nil {
		return false, err
	}
	var index uint32
	if len(encodedIndex) == 4 {
		index = binary.LittleEndian.Uint32(encodedIndex)
	}

	ext.SetExtrinsicIndex(index)
	switch decoded.tag {
	case failTag:
		ext.ClearExtrinsicIndex()
		return false, nil
	case setTag:
		err = ext.SetStorage(decoded.fields[0], decoded.fields[1])
		if err != nil {
			return false, err
		}
	case setChildTag:
		ext.SetChildStorage(decoded.fields[0], decoded.fields[1], decoded.fields[2])
	}

	ext.ClearExtrinsicIndex()
	next := make([]byte, 4)
	binary.LittleEndian.PutUint32(next, index+1)
	return true, ext.SetStorage(common.ExtrinsicIndexKey, next)
}

func finalizeBlock(ext *statemachine.Ext) (*types.Header, error) {
	ext.ClearExtrinsicIndex()
	err := ext.ClearStorage(common.ExtrinsicIndexKey)
	if err != nil {
		return nil, err
	}

	encodedNumber, err := ext.Storage(common.BlockNumberKey)
	if err != nil {
		return nil, err
	}
	if len(encodedNumber) != 8 {
		return nil, errors.New("block is not initialized")
	}
	parentHash, err := ext.Storage(ParentHashKey)
	if err != nil {
		return nil, err
	}

	stateRoot, err := ext.StorageRoot()
	if err != nil {
		return nil, err
	}
	header := &types.Header{
		ParentHash: common.NewHash(parentHash),
		Number:     binary.LittleEndian.Uint64(encodedNumber),
		StateRoot:  stateRoot,
	}

	changesTrieRoot, err := ext.ChangesTrieRoot()
	if err != nil {
		return nil, err
	}
	if changesTrieRoot != nil {
		header.Digest = types.Digest{types.ChangesTrieRootDigest{Hash: *changesTrieRoot}}
	}
	return header, nil
}

func executeBlock(ext *statemachine.Ext, block *types.Block) error {
	err := initializeBlock(ext, &block.Header)
	if err != nil {
		return err
	}

	for i, extrinsic := range block.Body {
		ok, err := applyExtrinsic(ext, extrinsic)
		if err != nil {
			return fmt.Errorf("applying extrinsic %d: %w", i, err)
		}
		if !ok {
			return fmt.Errorf("%w: index %d", errExtrinsicApplied, i)
		}
	}

	header, err := finalizeBlock(ext)
	if err != nil {
		return err
	}
	if header.StateRoot != block.Header.StateRoot {
		return fmt.Errorf("%w: expected %s, got %s", errStateRoot, block.Header.StateRoot, header.StateRoot)
	}
	if root := block.Body.ExtrinsicsRoot(); root != block.Header.ExtrinsicsRoot {
		return fmt.Errorf("%w: expected %s, got %s", errExtrinsicsRoot, block.Header.ExtrinsicsRoot, root)
	}

	expected, expectedOK := block.Header.ChangesTrieRoot()
	computed, computedOK := header.ChangesTrieRoot()
	if expected != computed || expectedOK != computedOK {
		return fmt.Errorf("%w: expected %s, got %s", errChangesTrieRoot, expected, computed)
	}
	return nil
}
