// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

var _ json.Marshaler = (*ExecutionMismatchTM)(nil)

type executionMismatch struct {
	Method string `json:"method"`
	Native string `json:"native"`
	Wasm   string `json:"wasm"`
}

// ExecutionMismatchTM holds the `execution.mismatch` telemetry message, sent
// when native and on-chain executions of a call disagree. Results are hex
// encoded, and a failed execution is reported by its error.
type ExecutionMismatchTM executionMismatch

// NewExecutionMismatchTM creates a new ExecutionMismatchTM.
func NewExecutionMismatchTM(method string, native []byte, nativeErr error,
	wasm []byte, wasmErr error) *ExecutionMismatchTM {
	return &ExecutionMismatchTM{
		Method: method,
		Native: resultString(native, nativeErr),
		Wasm:   resultString(wasm, wasmErr),
	}
}

func resultString(result []byte, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "0x" + hex.EncodeToString(result)
}

// MarshalJSON implements json.Marshaler.
func (em ExecutionMismatchTM) MarshalJSON() ([]byte, error) {
	telemetryData := struct {
		executionMismatch
		MessageType string    `json:"msg"`
		Timestamp   time.Time `json:"ts"`
	}{
		executionMismatch: executionMismatch(em),
		MessageType:       executionMismatchMsg,
		Timestamp:         time.Now(),
	}
	return json.Marshal(telemetryData)
}
