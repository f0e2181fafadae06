// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-delimited frame codec used by the
// external helper protocol: a 12-byte header (signature, payload length,
// Adler-32 checksum) followed by the payload bytes.
//
// Encode produces a complete frame in one allocation. Decoder accumulates
// bytes from a stream across multiple Feed calls and yields complete,
// checksum-verified payloads in arrival order — callers never need to
// know how the underlying reads were chunked.
package wire
