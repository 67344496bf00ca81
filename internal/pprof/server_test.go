// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_NewServer(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	listening := regexp.MustCompile(`^pprof http server listening on 127\.0\.0\.1:[1-9][0-9]{0,4}$`)
	logger := NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Cond(func(x any) bool {
		s, ok := x.(string)
		return ok && listening.MatchString(s)
	}))
	logger.EXPECT().Warn("pprof http server shutting down: context canceled")

	server := NewServer("127.0.0.1:0", logger)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error)
	go server.Run(ctx, ready, done)
	<-ready

	address, err := server.GetAddress(context.Background())
	require.NoError(t, err)
	response, err := http.Get("http://" + address + "/debug/pprof/heap")
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	assert.Equal(t, http.StatusOK, response.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}

func Test_newHandler(t *testing.T) {
	t.Parallel()

	handler := newHandler()

	testCases := map[string]struct {
		path   string
		status int
	}{
		"index":     {path: "/debug/pprof/", status: http.StatusOK},
		"goroutine": {path: "/debug/pprof/goroutine?debug=1", status: http.StatusOK},
		"mutex":     {path: "/debug/pprof/mutex", status: http.StatusOK},
		"allocs":    {path: "/debug/pprof/allocs", status: http.StatusOK},
		"unknown":   {path: "/metrics", status: http.StatusNotFound},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, testCase.path, nil)
			handler.ServeHTTP(recorder, request)
			assert.Equal(t, testCase.status, recorder.Code)
		})
	}
}
