// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipcregistry tracks every external-helper child process spawned
// by this program, independent of which [bridge.Endpoint] owns it.
//
// A single process-wide registry exists so that the bridge binary's
// exit path can SIGKILL every outstanding child without each endpoint
// needing to know about
// its siblings, and so tests can assert no child leaks past the end of
// a case.
package ipcregistry
