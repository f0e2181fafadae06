// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpbridge provides the single-shot synchronization primitive
// the HTTP proxy session machine parks a host-server handler goroutine
// on: a [Gate] that releases exactly once, with either a successful
// result or a failure sentinel, and is safe to release redundantly from
// both the normal completion path and a connection-closure callback
// racing it.
//
// The session table itself — mapping req_id to a parked gate plus the
// HTTPConnection being served — lives in package bridge alongside the
// rest of the endpoint's mutex-guarded state, since req_id allocation
// and session lookup happen under the endpoint lock (see
// serveProxiedRequest and the HTTPRESPONSE handler in
// bridge/commands.go); gates themselves are released after that lock
// is dropped. This package only owns the gate itself, so it
// has no dependency on bridge's interfaces and can be tested in
// isolation.
package httpbridge
