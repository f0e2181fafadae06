// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "errors"

// ErrProtocolDesync is returned by Decoder.Feed when a frame header's
// signature does not match Signature. The stream is no longer
// trustworthy — the caller should close the transport.
var ErrProtocolDesync = errors.New("wire: protocol signature mismatch")

// ErrChecksumBad is returned when a frame's Adler-32 checksum does not
// match its payload.
var ErrChecksumBad = errors.New("wire: frame checksum mismatch")
