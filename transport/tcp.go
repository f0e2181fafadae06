// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// acceptPollInterval bounds how long a single Accept call blocks before
// re-checking ctx. net.Listener has no context-aware Accept, so we poll
// a short deadline instead of leaking a goroutine per call.
const acceptPollInterval = 200 * time.Millisecond

// Compile-time interface checks.
var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts inbound TCP connections from external helpers
// that dial in to a known address instead of being spawned as children.
type TCPListener struct {
	listener *net.TCPListener
}

// NewTCPListener binds a TCP listener on address (e.g. ":2501" or
// "127.0.0.1:0" for an OS-assigned port).
func NewTCPListener(address string) (*TCPListener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", address, err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", address, err)
	}
	return &TCPListener{listener: listener}, nil
}

// Accept blocks until a connection arrives, ctx is cancelled, or the
// listener is closed.
func (l *TCPListener) Accept(ctx context.Context) (Stream, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.listener.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := l.listener.Accept()
		if err == nil {
			return conn, nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		return nil, err
	}
}

// Address returns the bound "host:port".
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close shuts down the listener. A blocked Accept returns within
// acceptPollInterval.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// TCPDialer opens outbound TCP connections.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (Stream, error) {
	conn, err := (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
