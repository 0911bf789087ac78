// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crossword

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bureau-foundation/crossword/lib/ledger"
)

type metrics struct {
	// operations counts entry point calls.
	// Labels: operation, outcome (ok or an error kind).
	operations *prometheus.CounterVec

	// duration measures entry point latency, including the wait for
	// the contract lock. Labels: operation.
	duration *prometheus.HistogramVec

	// escrowed is the custody account balance after the last
	// committed create or claim.
	escrowed prometheus.Gauge

	// transitions counts committed lifecycle transitions.
	// Labels: state (the state entered).
	transitions *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	factory := promauto.With(registerer)
	return &metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossword",
			Name:      "operations_total",
			Help:      "Contract entry point calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crossword",
			Name:      "operation_duration_seconds",
			Help:      "Contract entry point latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"operation"}),
		escrowed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "crossword",
			Name:      "escrowed_value",
			Help:      "Value currently held in escrow for unclaimed puzzles",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossword",
			Name:      "transitions_total",
			Help:      "Committed puzzle lifecycle transitions by entered state",
		}, []string{"state"}),
	}
}

func (m *metrics) observe(operation string, start time.Time, err error) {
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *metrics) setEscrowed(balance ledger.Amount) {
	m.escrowed.Set(float64(balance))
}
