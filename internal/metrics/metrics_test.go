// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Server_StartStop(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainstate",
		Name:      "test_total",
		Help:      "test counter",
	})
	registry.MustRegister(counter)
	counter.Inc()

	server := NewServer("127.0.0.1:0", registry)
	err := server.Start()
	require.NoError(t, err)

	address, err := server.Address(context.Background())
	require.NoError(t, err)

	response, err := http.Get("http://" + address + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.NoError(t, response.Body.Close())
	assert.Contains(t, string(body), "chainstate_test_total 1")

	err = server.Stop()
	require.NoError(t, err)
}

func Test_Server_Start_listenError(t *testing.T) {
	t.Parallel()

	server := NewServer("127.0.0.1:-1", prometheus.NewRegistry())
	err := server.Start()
	assert.ErrorContains(t, err, "listening on 127.0.0.1:-1")
}
