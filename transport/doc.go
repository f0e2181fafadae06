// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the duplex byte stream abstraction that
// carries framed helper-protocol traffic between the bridge and an
// external helper.
//
// [Stream] is satisfied directly by net.Conn and by a single *os.File.
// Most helpers are spawned as child processes and communicate over a
// pipe pair handed to them as inherited file descriptors; the bridge
// joins the host's two pipe ends into one Stream with a small adapter
// of its own. [Listener] and [Dialer] exist for the less common case where a
// helper is not a child of this process but instead dials in (or is
// dialed) over TCP with a pre-established duplex connection.
// [TCPListener] and [TCPDialer] are the concrete implementations; both
// accept/dial plain connections, with no HTTP framing of their own —
// the bridge protocol supplies its own framing over the raw bytes.
package transport
