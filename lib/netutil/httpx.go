// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides network I/O utilities shared by the bridge
// transports and the HTTP proxy session machine.
//
// Body helpers (ReadBounded, MaxFormBodySize) bound request-body reads
// when materializing form variables for a proxied request, so a
// misbehaving HTTP client cannot exhaust memory before the request
// ever reaches the helper. Streaming proxy responses are never
// buffered here — they are forwarded incrementally as response chunks.
//
// Connection error helpers (IsExpectedCloseError) classify errors that
// occur during normal teardown of a child pipe pair or an attached
// stream.
package netutil

import (
	"fmt"
	"io"
)

// MaxFormBodySize is the bound on request-body reads when extracting
// form variables: 16 MB. Legitimate form posts from helpers' HTTP
// clients are orders of magnitude smaller; the limit exists only to
// keep a pathological client from exhausting memory.
const MaxFormBodySize int64 = 16 << 20

// ReadBounded reads r to completion, refusing to buffer more than
// limit bytes. Use instead of io.ReadAll when reading request bodies.
func ReadBounded(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("netutil: body exceeds %d byte limit", limit)
	}
	return data, nil
}
