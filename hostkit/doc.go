// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostkit supplies minimal reference implementations of every
// external collaborator the bridge consumes: a YAML-backed config
// store, a structured-log message bus, a ticker-based timer service,
// an in-process event bus, and a net/http-backed web server.
//
// They exist so the bridge binaries are runnable and testable without
// a full host application. A production host embedding the bridge is
// expected to supply its own implementations behind the same
// interfaces; nothing in package bridge depends on hostkit.
package hostkit
