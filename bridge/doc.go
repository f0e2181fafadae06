// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the external helper protocol endpoint: a
// per-connection transport and command-dispatch engine that lets a
// host process talk to an out-of-process helper over a framed binary
// stream.
//
// An [Endpoint] is constructed stopped. It transitions to running via
// either [Endpoint.RunIPC] (spawn the helper as a child, communicating
// over a pipe pair) or [Endpoint.Attach] (bind to an already-connected
// [transport.Stream], e.g. a TCP connection accepted by
// [transport.Listener]). From there it reads and dispatches inbound
// commands, serves outbound commands via [Endpoint.Send], and tears
// itself down permanently on the first transport error, helper exit,
// explicit [Endpoint.Close], or remote SHUTDOWN.
//
// The built-in command set (MESSAGE, PING/PONG, SHUTDOWN, the HTTP
// proxy commands, and the event-bus commands) is handled directly;
// anything else is offered to the endpoint's [Driver] before being
// dropped silently, so forward-compatible helper extensions never kill
// the link.
package bridge
