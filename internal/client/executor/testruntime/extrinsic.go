// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package testruntime

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

var errUnknownExtrinsic = errors.New("unknown extrinsic")

const (
	setTag byte = iota
	failTag
	setChildTag
)

// Set returns an extrinsic setting key to value. A nil value deletes key.
func Set(key, value []byte) types.Extrinsic {
	return encodeExtrinsic(setTag, key, value)
}

// SetChild returns an extrinsic setting key to value in the child trie.
func SetChild(child, key, value []byte) types.Extrinsic {
	return encodeExtrinsic(setChildTag, child, key, value)
}

// Fail returns an extrinsic the runtime rejects.
func Fail() types.Extrinsic {
	return types.Extrinsic{failTag}
}

func encodeExtrinsic(tag byte, fields ...[]byte) types.Extrinsic {
	buffer := bytes.NewBuffer([]byte{tag})
	encoder := scale.NewEncoder(buffer)
	for _, field := range fields {
		// a nil value is encoded as an absent option
		err := encoder.EncodeOption(field != nil, field)
		if err != nil {
			panic(err)
		}
	}
	return buffer.Bytes()
}

type extrinsic struct {
	tag    byte
	fields [][]byte
}

func decodeExtrinsic(data []byte) (extrinsic, error) {
	if len(data) == 0 {
		return extrinsic{}, fmt.Errorf("%w: empty", errUnknownExtrinsic)
	}

	var count int
	switch data[0] {
	case setTag:
		count = 2
	case failTag:
		count = 0
	case setChildTag:
		count = 3
	default:
		return extrinsic{}, fmt.Errorf("%w: tag %d", errUnknownExtrinsic, data[0])
	}

	reader := bytes.NewReader(data[1:])
	decoder := scale.NewDecoder(reader)
	decoded := extrinsic{tag: data[0], fields: make([][]byte, count)}
	for i := range decoded.fields {
		var field []byte
		var present bool
		err := decoder.DecodeOption(&present, &field)
		if err != nil {
			return extrinsic{}, fmt.Errorf("decoding field %d: %w", i, err)
		}
		if present && field == nil {
			field = []byte{}
		}
		decoded.fields[i] = field
	}
	if reader.Len() > 0 {
		return extrinsic{}, fmt.Errorf("%w: %d trailing bytes", errUnknownExtrinsic, reader.Len())
	}
	return decoded, nil
}
