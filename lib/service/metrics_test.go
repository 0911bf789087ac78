// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/crossword/lib/testutil"
)

func TestMetricsServerLifecycle(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crossword_test_scrapes_total",
		Help: "Test counter.",
	})
	registry.MustRegister(counter)
	counter.Add(3)

	server := NewMetricsServer(MetricsServerConfig{
		Address:  "127.0.0.1:0",
		Gatherer: registry,
		Logger:   slog.New(slog.DiscardHandler),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()

	select {
	case <-server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not become ready")
	}

	response, err := http.Get("http://" + server.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}
	if !strings.Contains(string(body), "crossword_test_scrapes_total 3") {
		t.Errorf("scrape missing counter:\n%s", body)
	}

	missing, err := http.Get("http://" + server.Addr().String() + "/other")
	if err != nil {
		t.Fatalf("GET /other: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("GET /other status = %d, want 404", missing.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "metrics shutdown"); err != nil {
		t.Errorf("Serve: %v", err)
	}
}

func TestMetricsServerListenError(t *testing.T) {
	server := NewMetricsServer(MetricsServerConfig{
		Address:  "256.0.0.1:0",
		Gatherer: prometheus.NewRegistry(),
		Logger:   slog.New(slog.DiscardHandler),
	})
	if err := server.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}

func TestMetricsServerPanicsOnMissingConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	tests := []struct {
		name   string
		config MetricsServerConfig
	}{
		{"missing_address", MetricsServerConfig{Gatherer: prometheus.NewRegistry(), Logger: logger}},
		{"missing_gatherer", MetricsServerConfig{Address: ":0", Logger: logger}},
		{"missing_logger", MetricsServerConfig{Address: ":0", Gatherer: prometheus.NewRegistry()}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewMetricsServer(test.config)
		})
	}
}
