// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

// DefaultListeningAddress is the address of the profiling server when
// none is configured.
const DefaultListeningAddress = "localhost:6060"

// Settings configure the profiling service. The zero rates leave block
// and mutex profiling disabled.
type Settings struct {
	ListeningAddress string
	// BlockProfileRate is given to runtime.SetBlockProfileRate.
	BlockProfileRate int
	// MutexProfileRate is given to runtime.SetMutexProfileFraction.
	MutexProfileRate int
}

func (s *Settings) setDefaults() {
	if s.ListeningAddress == "" {
		s.ListeningAddress = DefaultListeningAddress
	}
}
