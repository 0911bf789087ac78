// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes a Prometheus gatherer over HTTP on a TCP
// listener. Serve(ctx) blocks until ctx is cancelled and in-flight
// scrapes drain, the same lifecycle as SocketServer.
type MetricsServer struct {
	address string
	handler http.Handler
	logger  *slog.Logger

	shutdownTimeout time.Duration

	// ready is closed once the listener is bound.
	ready chan struct{}
	addr  net.Addr
}

// MetricsServerConfig configures a MetricsServer.
type MetricsServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:9464".
	// Required.
	Address string

	// Gatherer supplies the metrics served at /metrics. Required.
	Gatherer prometheus.Gatherer

	// ShutdownTimeout bounds graceful shutdown. Defaults to 5 seconds.
	ShutdownTimeout time.Duration

	// Logger is required.
	Logger *slog.Logger
}

// NewMetricsServer creates a server. Call Serve to start listening.
func NewMetricsServer(config MetricsServerConfig) *MetricsServer {
	if config.Address == "" {
		panic("service.MetricsServer: Address is required")
	}
	if config.Gatherer == nil {
		panic("service.MetricsServer: Gatherer is required")
	}
	if config.Logger == nil {
		panic("service.MetricsServer: Logger is required")
	}

	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		address:         config.Address,
		handler:         mux,
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the server is accepting connections.
func (s *MetricsServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed;
// resolves port 0 to the port the OS assigned.
func (s *MetricsServer) Addr() net.Addr {
	return s.addr
}

// Serve binds the listener and serves until ctx is cancelled.
func (s *MetricsServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("metrics endpoint listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	s.logger.Info("metrics endpoint stopped")
	return nil
}
