// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/crossword/lib/call"
	"github.com/bureau-foundation/crossword/lib/clock"
	"github.com/bureau-foundation/crossword/lib/codec"
)

const (
	dialTimeout         = 5 * time.Second
	responseReadTimeout = 45 * time.Second
	maxResponseSize     = 1024 * 1024
)

// ServiceError is returned by Call and CallSigned when the server
// responds with ok=false.
type ServiceError struct {
	Action  string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error on %q: %s", e.Action, e.Message)
}

// ServiceClient sends requests to a service socket, one connection
// per call.
type ServiceClient struct {
	socketPath string
	signer     ed25519.PrivateKey
	clock      clock.Clock
}

// NewServiceClient creates a client for unauthenticated actions.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath, clock: clock.Real()}
}

// NewSigningClient creates a client that signs calls with signer. The
// clock stamps envelopes; nil means clock.Real().
func NewSigningClient(socketPath string, signer ed25519.PrivateKey, clk clock.Clock) *ServiceClient {
	if clk == nil {
		clk = clock.Real()
	}
	return &ServiceClient{socketPath: socketPath, signer: signer, clock: clk}
}

// Call sends an unauthenticated request. fields must not contain
// "action". On success, response data is decoded into result if both
// are non-nil.
func (c *ServiceClient) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	maps.Copy(request, fields)
	request["action"] = action
	return c.roundTrip(ctx, action, request, result)
}

// CallSigned signs args for action and sends the envelope in the
// request's "call" field.
func (c *ServiceClient) CallSigned(ctx context.Context, action string, args any, result any) error {
	if c.signer == nil {
		return errors.New("service: CallSigned on a client without a signing key")
	}
	envelope, err := call.Sign(c.signer, action, args, c.clock.Now())
	if err != nil {
		return err
	}
	request := map[string]any{
		"action": action,
		"call":   envelope,
	}
	return c.roundTrip(ctx, action, request, result)
}

func (c *ServiceClient) roundTrip(ctx context.Context, action string, request any, result any) error {
	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}
	if !response.OK {
		return &ServiceError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

func (c *ServiceClient) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	if _, ok := ctx.Deadline(); !ok {
		conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	}
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}
