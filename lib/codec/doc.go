// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides this module's standard CBOR encoding
// configuration.
//
// Every command envelope exchanged with an external helper is CBOR,
// framed by the wire package. This package provides the shared CBOR
// encoding and decoding modes so every caller encodes identically
// without duplicating configuration. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. Same logical data
// always produces identical bytes — useful for checksum-stable framing
// and for golden-file tests.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Struct fields use `cbor` tags throughout this module — there is no
// JSON-serialized counterpart to the command envelope, so there is no
// need for the `json`-tag-as-fallback convention some CBOR-using
// projects rely on.
package codec
