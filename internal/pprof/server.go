// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"net/http"
	"net/http/pprof"

	"github.com/ChainSafe/chainstate/internal/httpserver"
)

// profiles are the runtime profiles served under /debug/pprof/<name>.
var profiles = [...]string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// NewServer returns an HTTP server serving the Go runtime profiles at the
// address. A port of 0 picks a free port, see GetAddress.
func NewServer(address string, logger httpserver.Logger,
	options ...httpserver.Option) *httpserver.Server {
	return httpserver.New("pprof", address, newHandler(), logger, options...)
}

func newHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	for _, name := range profiles {
		mux.Handle("/debug/pprof/"+name, pprof.Handler(name))
	}
	return mux
}
