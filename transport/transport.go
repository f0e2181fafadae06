// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"io"
)

// Stream is a duplex byte stream carrying framed helper-protocol
// traffic. TCP connections and Unix sockets satisfy it directly, as
// does a single *os.File; a child pipe pair is two files and is joined
// into one Stream by the bridge.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Listener accepts inbound connections from external helpers that dial
// in rather than being spawned as children (the pre-attached-stream
// mode described by the bridge's Attach path).
type Listener interface {
	// Accept blocks until a new Stream arrives, ctx is cancelled, or the
	// listener is closed. A cancelled ctx or a closed listener both
	// return the wrapped context or net error; callers distinguish them
	// with errors.Is against ctx.Err() and net.ErrClosed.
	Accept(ctx context.Context) (Stream, error)

	// Address returns the address this listener is bound to, for
	// logging and for helpers that need to be told where to connect.
	Address() string

	// Close shuts down the listener. A blocked Accept call returns
	// promptly with an error.
	Close() error
}

// Dialer opens outbound connections to a helper that is itself
// listening for the bridge to connect (rare, but symmetric with
// Listener for completeness and for tests that don't want to spawn a
// real child).
type Dialer interface {
	DialContext(ctx context.Context, address string) (Stream, error)
}
