// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"hash/adler32"
)

// Signature is the 32-bit constant every frame header must carry
// (the protocol's KIS_EXTERNAL_PROTO_SIG constant). A decoded header
// whose signature doesn't match this value means the stream has
// desynchronized — framing is unrecoverable and the transport must be
// torn down rather than resynchronized.
const Signature uint32 = 0x4B49534D // "KISM"

// HeaderSize is the fixed size, in bytes, of a frame header:
// signature (4) + data_sz (4) + data_checksum (4).
const HeaderSize = 12

// Encode returns a complete frame for payload: a HeaderSize-byte header
// (signature, length, Adler-32 checksum, all big-endian) followed by
// payload verbatim. The returned slice is freshly allocated; payload is
// not retained.
func Encode(payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], Signature)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	binary.BigEndian.PutUint32(frame[8:12], adler32.Checksum(payload))
	copy(frame[HeaderSize:], payload)
	return frame
}

// Decoder accumulates bytes from a stream and extracts complete,
// checksum-verified frame payloads in arrival order. It is not safe for
// concurrent use — callers serialize access the same way they serialize
// reads from the underlying stream.
type Decoder struct {
	buf []byte
}

// Feed appends newly read bytes to the decoder's ingress buffer and
// extracts every complete frame now available. It returns the decoded
// payloads (oldest first) and an error if any accumulated frame fails
// validation.
//
// On ErrProtocolDesync or ErrChecksumBad the decoder's internal buffer
// is left as-is: the stream is no longer trustworthy and the caller is
// expected to close the transport rather than keep feeding it.
func (d *Decoder) Feed(data []byte) ([][]byte, error) {
	d.buf = append(d.buf, data...)

	var payloads [][]byte
	for {
		payload, consumed, err := d.tryExtract()
		if err != nil {
			return payloads, err
		}
		if !consumed {
			return payloads, nil
		}
		payloads = append(payloads, payload)
	}
}

// tryExtract attempts to pull one complete frame off the front of the
// buffer. consumed is false when fewer than HeaderSize+data_sz bytes are
// currently buffered — the caller should wait for more data, not an
// error condition.
func (d *Decoder) tryExtract() (payload []byte, consumed bool, err error) {
	if len(d.buf) < HeaderSize {
		return nil, false, nil
	}

	signature := binary.BigEndian.Uint32(d.buf[0:4])
	if signature != Signature {
		return nil, false, ErrProtocolDesync
	}

	dataSize := binary.BigEndian.Uint32(d.buf[4:8])
	checksum := binary.BigEndian.Uint32(d.buf[8:12])

	// The length is computed in uint64 so a hostile data_sz cannot wrap
	// the addition on platforms where int is 32 bits.
	if uint64(len(d.buf)) < uint64(HeaderSize)+uint64(dataSize) {
		// Not enough buffered yet; wait for more reads.
		return nil, false, nil
	}
	frameLen := HeaderSize + int(dataSize)

	payloadBytes := d.buf[HeaderSize:frameLen]
	if adler32.Checksum(payloadBytes) != checksum {
		return nil, false, ErrChecksumBad
	}

	// Copy out before sliding the buffer, since the backing array is
	// about to be reused for the remaining bytes.
	out := make([]byte, dataSize)
	copy(out, payloadBytes)

	remaining := len(d.buf) - frameLen
	copy(d.buf, d.buf[frameLen:])
	d.buf = d.buf[:remaining]

	return out, true, nil
}

// Buffered returns the number of bytes currently held that have not yet
// formed a complete frame. Exposed for tests and diagnostics.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
