// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// Encode returns the SCALE encoding of value.
func Encode(value interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	encoder := scale.NewEncoder(buffer)
	var err error
	if encodeable, ok := value.(scale.Encodeable); ok {
		err = encodeable.Encode(*encoder)
	} else {
		err = encoder.Encode(value)
	}
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Decode decodes the SCALE encoded data into target, which must be a pointer.
// Trailing bytes are rejected.
func Decode(data []byte, target interface{}) error {
	reader := bytes.NewReader(data)
	decoder := scale.NewDecoder(reader)
	var err error
	if decodeable, ok := target.(scale.Decodeable); ok {
		err = decodeable.Decode(*decoder)
	} else {
		err = decoder.Decode(target)
	}
	if err != nil {
		return err
	}
	if reader.Len() > 0 {
		return fmt.Errorf("%d trailing bytes after decoding %T", reader.Len(), target)
	}
	return nil
}

func encodeCompact(encoder scale.Encoder, n uint64) error {
	return encoder.EncodeUintCompact(*new(big.Int).SetUint64(n))
}

func decodeCompact(decoder scale.Decoder) (uint64, error) {
	n, err := decoder.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("compact integer %s overflows uint64", n)
	}
	return n.Uint64(), nil
}

func encodeBytes(encoder scale.Encoder, b []byte) error {
	err := encodeCompact(encoder, uint64(len(b)))
	if err != nil {
		return err
	}
	return encoder.Write(b)
}

func decodeBytes(decoder scale.Decoder) ([]byte, error) {
	length, err := decodeCompact(decoder)
	if err != nil {
		return nil, err
	}
	const maxLength = 1 << 28
	if length > maxLength {
		return nil, fmt.Errorf("byte array length %d exceeds maximum %d", length, maxLength)
	}
	b := make([]byte, length)
	if length == 0 {
		return b, nil
	}
	err = decoder.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func encodeHash(encoder scale.Encoder, h common.Hash) error {
	return encoder.Write(h[:])
}

func decodeHash(decoder scale.Decoder) (h common.Hash, err error) {
	err = decoder.Read(h[:])
	return h, err
}
