// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// kismet-helper-bridge runs one external-helper endpoint from the
// command line: either spawning a helper binary as a child connected
// over a pipe pair (--helper), or accepting helpers that dial in over
// TCP (--listen). It wires the endpoint to the hostkit reference
// collaborators — YAML config, slog message bus, ticker timers, an
// in-memory event bus, and an optional net/http server for
// helper-registered proxy routes.
package main
