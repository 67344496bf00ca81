// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"context"
	"errors"
	"runtime"

	"github.com/ChainSafe/chainstate/internal/httpserver"
)

// Runner runs until its context is canceled.
type Runner interface {
	Run(ctx context.Context, ready chan<- struct{}, done chan<- error)
}

// Service runs the profiling server in the background, with the block and
// mutex profile rates set while it runs.
type Service struct {
	settings Settings
	server   Runner
	cancel   context.CancelFunc
	done     chan error
}

// NewService creates a profiling service. Start must be called before Stop.
func NewService(settings Settings, logger httpserver.Logger) *Service {
	settings.setDefaults()
	return &Service{
		settings: settings,
		server:   NewServer(settings.ListeningAddress, logger),
		done:     make(chan error),
	}
}

// ErrServerDoneBeforeReady is returned when the server exits before listening.
var ErrServerDoneBeforeReady = errors.New("server terminated before being ready")

// Start sets the profile rates and returns once the server listens.
func (s *Service) Start() (err error) {
	s.setProfileRates(s.settings.BlockProfileRate, s.settings.MutexProfileRate)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ready := make(chan struct{})
	go s.server.Run(ctx, ready, s.done)

	select {
	case <-ready:
		return nil
	case err = <-s.done:
		cancel()
		s.setProfileRates(0, 0)
		if err == nil {
			err = ErrServerDoneBeforeReady
		}
		return err
	}
}

// Stop shuts the server down and disables the profile rates set by Start.
func (s *Service) Stop() (err error) {
	s.cancel()
	err = <-s.done
	s.setProfileRates(0, 0)
	return err
}

func (s *Service) setProfileRates(block, mutex int) {
	if s.settings.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(block)
	}
	if s.settings.MutexProfileRate > 0 {
		runtime.SetMutexProfileFraction(mutex)
	}
}
