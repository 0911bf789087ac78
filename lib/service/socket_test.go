// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/crossword/lib/call"
	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/codec"
	"github.com/bureau-foundation/crossword/lib/testutil"
	"github.com/bureau-foundation/crossword/lib/token"
)

var testClockEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	server     *SocketServer
	socketPath string
	clock      *clock.FakeClock
	registry   *prometheus.Registry
}

// startServer builds a server, lets register add handlers, and serves
// until the test ends.
func startServer(t *testing.T, register func(*SocketServer)) *testServer {
	t.Helper()
	ts := &testServer{
		socketPath: testutil.SocketPath(t, "crossword.sock"),
		clock:      clock.Fake(testClockEpoch),
		registry:   prometheus.NewRegistry(),
	}
	ts.server = NewSocketServer(ts.socketPath, slog.New(slog.DiscardHandler), AuthConfig{
		MaxAge: time.Minute,
		Clock:  ts.clock,
	}, ts.registry)
	register(ts.server)

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- ts.server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, serveErr, 5*time.Second, "server shutdown"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	waitForSocket(t, ts.socketPath)
	return ts
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became reachable", path)
}

// sendRaw writes a request and decodes the response envelope.
func sendRaw(t *testing.T, socketPath string, request any) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

func testSigner(t *testing.T) (token.Token, ed25519.PrivateKey) {
	t.Helper()
	tok, privateKey, err := token.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return tok, privateKey
}

type echoArgs struct {
	Message string `cbor:"message"`
}

type echoResult struct {
	Message string      `cbor:"message"`
	Signer  token.Token `cbor:"signer"`
}

func echoHandlers(s *SocketServer) {
	s.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]string{"state": "serving"}, nil
	})
	s.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("deliberate failure")
	})
	s.Handle("empty", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	s.Handle("lookup", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Key string `cbor:"key"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]string{"key": request.Key}, nil
	})
	s.HandleSigned("echo", func(ctx context.Context, payload *call.Payload) (any, error) {
		var args echoArgs
		if err := payload.DecodeArgs(&args); err != nil {
			return nil, err
		}
		return echoResult{Message: args.Message, Signer: payload.Signer}, nil
	})
}

func TestUnsignedActions(t *testing.T) {
	ts := startServer(t, echoHandlers)
	client := NewServiceClient(ts.socketPath)
	ctx := context.Background()

	var status map[string]string
	if err := client.Call(ctx, "status", nil, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status["state"] != "serving" {
		t.Errorf("status = %v", status)
	}

	var lookup map[string]string
	if err := client.Call(ctx, "lookup", map[string]any{"key": "abc"}, &lookup); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if lookup["key"] != "abc" {
		t.Errorf("lookup = %v", lookup)
	}

	if err := client.Call(ctx, "empty", nil, nil); err != nil {
		t.Errorf("empty: %v", err)
	}

	err := client.Call(ctx, "fail", nil, nil)
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("fail error = %T %v, want *ServiceError", err, err)
	}
	if serviceErr.Action != "fail" || serviceErr.Message != "deliberate failure" {
		t.Errorf("ServiceError = %+v", serviceErr)
	}
}

func TestProtocolErrors(t *testing.T) {
	ts := startServer(t, echoHandlers)

	tests := []struct {
		name    string
		request any
		want    string
	}{
		{"missing action", map[string]any{"key": "x"}, "missing required field: action"},
		{"unknown action", map[string]any{"action": "teleport"}, `unknown action "teleport"`},
		{"not a map", []int{1, 2, 3}, "invalid request"},
		{"signed action without call", map[string]any{"action": "echo"}, "missing required field: call"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRaw(t, ts.socketPath, test.request)
			if response.OK {
				t.Fatal("response OK, want error")
			}
			if !strings.Contains(response.Error, test.want) {
				t.Errorf("error = %q, want it to contain %q", response.Error, test.want)
			}
		})
	}
}

func TestSignedCall(t *testing.T) {
	ts := startServer(t, echoHandlers)
	signer, privateKey := testSigner(t)
	client := NewSigningClient(ts.socketPath, privateKey, ts.clock)

	var result echoResult
	if err := client.CallSigned(context.Background(), "echo", echoArgs{Message: "hello"}, &result); err != nil {
		t.Fatalf("CallSigned: %v", err)
	}
	if result.Message != "hello" || result.Signer != signer {
		t.Errorf("result = %+v, want hello from %s", result, signer)
	}
	if got := promtestutil.ToFloat64(ts.server.requests.WithLabelValues("echo", "ok")); got != 1 {
		t.Errorf("echo ok requests = %v, want 1", got)
	}
}

func TestSignedCallRejections(t *testing.T) {
	ts := startServer(t, echoHandlers)
	_, privateKey := testSigner(t)

	// An envelope signed for another operation.
	envelope, err := call.Sign(privateKey, "other", echoArgs{Message: "x"}, ts.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	response := sendRaw(t, ts.socketPath, map[string]any{"action": "echo", "call": envelope})
	if response.OK || !strings.Contains(response.Error, "different operation") {
		t.Errorf("wrong operation response = %+v", response)
	}

	// A tampered signature.
	envelope, err = call.Sign(privateKey, "echo", echoArgs{Message: "x"}, ts.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), envelope...)
	tampered[len(tampered)-1] ^= 0xff
	response = sendRaw(t, ts.socketPath, map[string]any{"action": "echo", "call": tampered})
	if response.OK || !strings.Contains(response.Error, "invalid Ed25519 signature") {
		t.Errorf("tampered response = %+v", response)
	}

	// The untampered envelope works once, then is a replay.
	response = sendRaw(t, ts.socketPath, map[string]any{"action": "echo", "call": envelope})
	if !response.OK {
		t.Fatalf("fresh envelope rejected: %s", response.Error)
	}
	response = sendRaw(t, ts.socketPath, map[string]any{"action": "echo", "call": envelope})
	if response.OK || !strings.Contains(response.Error, "already used") {
		t.Errorf("replay response = %+v", response)
	}

	// After the freshness window the envelope is stale.
	stale, err := call.Sign(privateKey, "echo", nil, ts.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	ts.clock.Advance(2 * time.Minute)
	response = sendRaw(t, ts.socketPath, map[string]any{"action": "echo", "call": stale})
	if response.OK || !strings.Contains(response.Error, "freshness window") {
		t.Errorf("stale response = %+v", response)
	}
}

func TestCallSignedWithoutKey(t *testing.T) {
	client := NewServiceClient("/nonexistent.sock")
	if err := client.CallSigned(context.Background(), "echo", nil, nil); err == nil {
		t.Fatal("CallSigned without a key succeeded")
	}
}

func TestDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/nonexistent.sock", slog.New(slog.DiscardHandler), AuthConfig{}, nil)
	server.Handle("status", func(context.Context, []byte) (any, error) { return nil, nil })
	defer func() {
		if recover() == nil {
			t.Error("duplicate Handle did not panic")
		}
	}()
	server.Handle("status", func(context.Context, []byte) (any, error) { return nil, nil })
}

func TestConcurrentRequests(t *testing.T) {
	ts := startServer(t, echoHandlers)
	client := NewServiceClient(ts.socketPath)

	const clients = 16
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			var result map[string]string
			if err := client.Call(context.Background(), "lookup", map[string]any{"key": key}, &result); err != nil {
				errs <- err
				return
			}
			if result["key"] != key {
				errs <- fmt.Errorf("got %q, want %q", result["key"], key)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestConnectionErrorIsNotServiceError(t *testing.T) {
	client := NewServiceClient(testutil.SocketPath(t, "missing.sock"))
	err := client.Call(context.Background(), "status", nil, nil)
	if err == nil {
		t.Fatal("call to missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Errorf("connection failure reported as ServiceError: %v", err)
	}
}
