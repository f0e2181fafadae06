// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// kismet-helper-stub is a minimal external helper speaking the framed
// bridge protocol, used as a worked example of the child side of the
// launch contract and as a live peer for manual bridge testing. It is
// spawned by the bridge as:
//
//	kismet-helper-stub --in-fd=3 --out-fd=4
//
// On startup it announces itself over MESSAGE and registers a /stub
// HTTP route; it answers PING with PONG, serves proxied HTTP requests
// with a canned streaming response, and exits on SHUTDOWN.
package main
