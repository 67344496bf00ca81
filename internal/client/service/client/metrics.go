// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "chainstate_client"

type metrics struct {
	blockImport    *prometheus.CounterVec
	blockHeight    *prometheus.GaugeVec
	importDuration prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) (m *metrics, err error) {
	m = &metrics{
		blockImport: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "block_import_total",
			Help:      "number of block imports by result",
		}, []string{"result"}),
		blockHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "block_height",
			Help:      "height of the best and finalized blocks",
		}, []string{"status"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "import_duration_seconds",
			Help:      "duration of block imports",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	if registerer == nil {
		return m, nil
	}

	collectorsToRegister := map[string]prometheus.Collector{
		"block import counter":      m.blockImport,
		"block height gauge":        m.blockHeight,
		"import duration histogram": m.importDuration,
	}
	for collectorName, collectorToRegister := range collectorsToRegister {
		err = registerer.Register(collectorToRegister)
		if err != nil && !errors.As(err, &prometheus.AlreadyRegisteredError{}) {
			return nil, fmt.Errorf("cannot register %s: %w", collectorName, err)
		}
	}
	return m, nil
}

func (m *metrics) observeImport(result consensus.ImportResult, err error, start time.Time) {
	label := "error"
	switch result.(type) {
	case nil:
	case consensus.ImportResultImported:
		label = "Imported"
	default:
		label = result.String()
	}
	if err != nil {
		label = "error"
	}
	m.blockImport.WithLabelValues(label).Inc()
	m.importDuration.Observe(time.Since(start).Seconds())
}

func (m *metrics) setHeights(info blockchain.Info) {
	m.blockHeight.WithLabelValues("best").Set(float64(info.BestNumber))
	m.blockHeight.WithLabelValues("finalized").Set(float64(info.FinalizedNumber))
}
