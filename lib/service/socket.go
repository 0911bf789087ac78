// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bureau-foundation/crossword/lib/call"
	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/codec"
)

// ActionFunc processes a request for one action. raw is the full CBOR
// request, including the "action" field. A non-nil result is encoded
// into the response's data field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// SignedActionFunc processes a request whose "call" envelope has been
// verified. The payload's Signer is the authenticated caller.
type SignedActionFunc func(ctx context.Context, payload *call.Payload) (any, error)

// Response is the envelope for every response.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// AuthConfig controls verification of signed calls.
type AuthConfig struct {
	// MaxAge is the freshness window for call envelopes. Defaults to
	// call.DefaultMaxAge.
	MaxAge time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock
}

// SocketServer serves a CBOR request-response protocol on a Unix
// socket, one request per connection: the client writes a CBOR map,
// the server writes a Response, and the connection closes.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	maxAge time.Duration
	clock  clock.Clock
	replay *call.ReplayGuard

	requests *prometheus.CounterVec

	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// registerer may be nil.
func NewSocketServer(socketPath string, logger *slog.Logger, auth AuthConfig, registerer prometheus.Registerer) *SocketServer {
	if auth.MaxAge <= 0 {
		auth.MaxAge = call.DefaultMaxAge
	}
	if auth.Clock == nil {
		auth.Clock = clock.Real()
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
		maxAge:     auth.MaxAge,
		clock:      auth.Clock,
		replay:     call.NewReplayGuard(auth.MaxAge),
		requests: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossword",
			Subsystem: "socket",
			Name:      "requests_total",
			Help:      "Socket requests by action and result",
		}, []string{"action", "result"}),
	}
}

// Handle registers an unauthenticated action. Panics on duplicates.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleSigned registers an action that requires a "call" field
// holding an envelope signed for this action. The envelope must be
// fresh and not seen before; only then is handler invoked.
func (s *SocketServer) HandleSigned(action string, handler SignedActionFunc) {
	s.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Call []byte `cbor:"call"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		if len(request.Call) == 0 {
			return nil, errors.New("missing required field: call")
		}

		now := s.clock.Now()
		payload, err := call.VerifyOperation(request.Call, action, now, s.maxAge)
		if err != nil {
			return nil, err
		}
		id := call.ID(request.Call)
		if err := s.replay.Observe(id, time.Unix(payload.IssuedAt, 0), now); err != nil {
			return nil, err
		}
		s.logger.Debug("signed call verified",
			"action", action,
			"call_id", id,
			"signer", payload.Signer.String(),
		)
		return handler(ctx, payload)
	})
}

// Serve accepts connections until ctx is cancelled, then waits for
// in-flight requests. A stale socket file is removed first; the socket
// is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	readTimeout    = 30 * time.Second
	writeTimeout   = 10 * time.Second
	maxRequestSize = 256 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting; one value is one request.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeError(conn, "", fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, "", fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, "", "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, "", fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed", "action", header.Action, "error", err)
		s.writeError(conn, header.Action, err.Error())
		return
	}
	s.writeSuccess(conn, header.Action, result)
}

// writeError sends {ok: false, error: message}. action is empty when
// the request never reached a handler.
func (s *SocketServer) writeError(conn net.Conn, action, message string) {
	if action == "" {
		action = "invalid"
	}
	s.requests.WithLabelValues(action, "error").Inc()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{OK: false, Error: message}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, action string, result any) {
	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, action, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	s.requests.WithLabelValues(action, "ok").Inc()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
