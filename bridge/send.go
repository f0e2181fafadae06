// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"

	"github.com/Sophic-Technical-Solutions/kismet/lib/codec"
	"github.com/Sophic-Technical-Solutions/kismet/wire"
)

// nextSeqno advances ep.seqno, skipping the reserved value 0 on wrap.
// Must be called with ep.mu held.
func (ep *Endpoint) nextSeqno() uint32 {
	ep.seqno++
	if ep.seqno == 0 {
		ep.seqno = 1
	}
	return ep.seqno
}

// send assembles and transmits command, content already CBOR-encoded
// into cmd.Content by the caller. If cmd.Seqno is zero, a fresh
// sequence number is assigned (skip-zero on wrap). Returns the
// assigned seqno, or 0 with an error if no transport is active or the
// write fails.
func (ep *Endpoint) send(cmd Command) (uint32, error) {
	ep.mu.Lock()

	if cmd.Seqno == 0 {
		cmd.Seqno = ep.nextSeqno()
	}

	payload, err := codec.Marshal(cmd)
	if err != nil {
		ep.mu.Unlock()
		return 0, fmt.Errorf("bridge: encode command %q: %w", cmd.Command, err)
	}
	frame := wire.Encode(payload)

	writeCB := ep.writeCB
	stream := ep.stream
	ep.mu.Unlock()

	// Writes are serialized per endpoint so concurrent senders cannot
	// interleave frame bytes, but never under ep.mu — a slow stream
	// must not block the receive path.
	ep.writeMu.Lock()
	defer ep.writeMu.Unlock()

	switch {
	case writeCB != nil:
		if err := writeCB(frame); err != nil {
			ep.triggerError(fmt.Errorf("%w: %v", ErrWriteFailure, err))
			return 0, err
		}
	case stream != nil:
		if _, err := stream.Write(frame); err != nil {
			ep.triggerError(fmt.Errorf("%w: %v", ErrWriteFailure, err))
			return 0, err
		}
	default:
		ep.triggerError(ErrNoConnection)
		return 0, ErrNoConnection
	}

	return cmd.Seqno, nil
}

// Send encodes content as CBOR and transmits it under command with a
// freshly assigned seqno. It is the public entry point a Driver uses to
// originate outbound commands beyond the built-in set.
func (ep *Endpoint) Send(command string, content any) (uint32, error) {
	data, err := codec.Marshal(content)
	if err != nil {
		return 0, fmt.Errorf("bridge: encode %s content: %w", command, err)
	}
	return ep.send(Command{Command: command, Content: data})
}
