// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal transport
// termination: EOF, a closed socket or pipe, broken pipe, or
// connection reset. These occur during normal endpoint teardown when
// one side of a child pipe pair or attached stream goes away and the
// other side's in-flight read or write fails as a result.
//
// A helper that exits (cleanly or not) produces EOF on the host's read
// end of the pipe pair; full-close teardown of an attached TCP stream
// produces ECONNRESET and EPIPE on the surviving side; and our own
// Close of a pipe fd surfaces os.ErrClosed on the read that was parked
// on it. All of these are expected and should be logged quietly, not
// as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
