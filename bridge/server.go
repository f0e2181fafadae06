// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sophic-Technical-Solutions/kismet/lib/netutil"
	"github.com/Sophic-Technical-Solutions/kismet/transport"
)

// AttachServer accepts pre-connected helper streams from a transport
// listener and binds each one to a fresh Endpoint. It serves helpers
// that dial in over TCP instead of being spawned as children; the
// spawned-child path is Endpoint.RunIPC.
type AttachServer struct {
	// Listener supplies inbound helper streams. Required.
	Listener transport.Listener

	// NewEndpoint constructs the Endpoint for each accepted stream,
	// with whatever collaborators and Driver the host wants bound to
	// it. Required. The server calls Attach on the result; a returned
	// nil endpoint drops the connection.
	NewEndpoint func() *Endpoint

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug level; errors and
	// lifecycle events at Info/Error.
	Logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	stopping  bool
	endpoints []*Endpoint
}

// logger returns the configured logger or the default.
func (s *AttachServer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Start begins accepting helper connections in the background. It
// returns immediately; the server runs until Stop is called or the
// context is cancelled.
func (s *AttachServer) Start(ctx context.Context) error {
	if s.Listener == nil {
		return fmt.Errorf("bridge: AttachServer.Listener is required")
	}
	if s.NewEndpoint == nil {
		return fmt.Errorf("bridge: AttachServer.NewEndpoint is required")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.acceptLoop(ctx)
	}()

	s.logger().Info("attach server started", "address", s.Listener.Address())
	return nil
}

// Stop shuts the server down: the listener is closed, every endpoint
// attached through it is torn down, and Stop returns once the accept
// loop has exited.
func (s *AttachServer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.Listener.Close()

	s.mu.Lock()
	s.stopping = true
	endpoints := append([]*Endpoint(nil), s.endpoints...)
	s.endpoints = nil
	s.mu.Unlock()
	for _, ep := range endpoints {
		ep.Close()
	}

	if s.done != nil {
		<-s.done
	}
}

// Wait blocks until the server has stopped.
func (s *AttachServer) Wait() {
	if s.done != nil {
		<-s.done
	}
}

// acceptLoop accepts helper connections and binds each to an endpoint
// until the listener closes or ctx is cancelled.
func (s *AttachServer) acceptLoop(ctx context.Context) {
	var connectionCount int64

	for {
		stream, err := s.Listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || netutil.IsExpectedCloseError(err) {
				return
			}
			s.logger().Error("accept failed", "error", err)
			continue
		}

		connectionCount++
		logger := s.logger().With("connection_id", connectionCount)

		ep := s.NewEndpoint()
		if ep == nil {
			logger.Debug("endpoint factory declined connection")
			stream.Close()
			continue
		}

		// Register before Attach so a concurrent Stop always sees the
		// endpoint and tears it down.
		s.mu.Lock()
		if s.stopping {
			s.mu.Unlock()
			ep.Close()
			stream.Close()
			return
		}
		s.endpoints = append(s.endpoints, ep)
		s.mu.Unlock()

		if err := ep.Attach(ctx, stream); err != nil {
			logger.Error("attach failed", "error", err)
			ep.Close()
			stream.Close()
			continue
		}

		logger.Debug("helper attached")
	}
}
