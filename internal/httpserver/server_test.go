// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package httpserver

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

//go:generate mockgen -destination=logger_mock_test.go -package $GOPACKAGE . Logger

func Test_New(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	const name = "name"
	const address = "test"
	handler := http.NewServeMux()
	logger := NewMockLogger(ctrl)

	expectedServer := &Server{
		name:    name,
		address: address,
		handler: handler,
		logger:  logger,
		optional: optionalSettings{
			shutdownTimeout: time.Second,
		},
	}

	server := New(name, address, handler, logger,
		ShutdownTimeout(time.Second))

	assert.NotNil(t, server.addressSet)
	server.addressSet = nil

	assert.Equal(t, expectedServer, server)
}

func Test_Server_Run(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	handler := http.NewServeMux()
	handler.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	logger := NewMockLogger(ctrl)
	logger.EXPECT().Info(newRegexMatcher("^test http server listening on 127.0.0.1:[1-9][0-9]{0,4}$"))
	logger.EXPECT().Warn("test http server shutting down: context canceled")

	server := New("test", "127.0.0.1:0", handler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error)
	go server.Run(ctx, ready, done)

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("server exited unexpectedly: %s", err)
	}

	address, err := server.GetAddress(context.Background())
	require.NoError(t, err)

	response, err := http.Get("http://" + address + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	assert.Equal(t, "ok", string(body))

	cancel()
	err = <-done
	assert.NoError(t, err)
}

func Test_Server_Run_listenError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	server := New("test", "127.0.0.1:-1", http.NewServeMux(), NewMockLogger(ctrl))

	ready := make(chan struct{})
	done := make(chan error)
	go server.Run(context.Background(), ready, done)

	err := <-done
	assert.ErrorContains(t, err, "listening on 127.0.0.1:-1")
}

type regexMatcher struct {
	regex *regexp.Regexp
}

func newRegexMatcher(pattern string) *regexMatcher {
	return &regexMatcher{regex: regexp.MustCompile(pattern)}
}

func (r *regexMatcher) Matches(x interface{}) bool {
	s, ok := x.(string)
	return ok && r.regex.MatchString(s)
}

func (r *regexMatcher) String() string {
	return "matches the regular expression " + r.regex.String()
}
