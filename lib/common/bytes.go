// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import "encoding/binary"

// CopyBytes returns an exact copy of the provided bytes.
// A nil input gives a nil output.
func CopyBytes(b []byte) (copiedBytes []byte) {
	if b == nil {
		return nil
	}
	copiedBytes = make([]byte, len(b))
	copy(copiedBytes, b)
	return copiedBytes
}

// Uint64ToBytesBE encodes n as 8 big endian bytes.
func Uint64ToBytesBE(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// BytesBEToUint64 decodes 8 big endian bytes into a uint64.
func BytesBEToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
