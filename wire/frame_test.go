// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		bytes.Repeat([]byte("x"), 4096),
		[]byte(`{"command":"MESSAGE","seqno":1}`),
	}

	for _, payload := range cases {
		frame := Encode(payload)

		var d Decoder
		got, err := d.Feed(frame)
		if err != nil {
			t.Fatalf("Feed(%d bytes): unexpected error: %v", len(payload), err)
		}
		if len(got) != 1 {
			t.Fatalf("Feed(%d bytes): got %d payloads, want 1", len(payload), len(got))
		}
		if !bytes.Equal(got[0], payload) {
			t.Fatalf("Feed(%d bytes): payload mismatch: got %q want %q", len(payload), got[0], payload)
		}
		if d.Buffered() != 0 {
			t.Fatalf("Feed(%d bytes): %d bytes left unconsumed", len(payload), d.Buffered())
		}
	}
}

// TestDecoderByteAtATime feeds a frame one byte at a time, as a stream
// reader would deliver it in small chunks, and checks that the decoder
// only yields the payload once the final byte arrives.
func TestDecoderByteAtATime(t *testing.T) {
	payload := []byte("hello, helper")
	frame := Encode(payload)

	var d Decoder
	var got [][]byte
	for i, b := range frame {
		out, err := d.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed at byte %d: unexpected error: %v", i, err)
		}
		got = append(got, out...)
	}

	if len(got) != 1 {
		t.Fatalf("got %d payloads across byte-at-a-time feed, want 1", len(got))
	}
	if !bytes.Equal(got[0], payload) {
		t.Fatalf("payload mismatch: got %q want %q", got[0], payload)
	}
}

func TestDecoderMultipleFramesInOneFeed(t *testing.T) {
	p1 := []byte("first")
	p2 := []byte("second")
	p3 := []byte("third")

	var buf bytes.Buffer
	buf.Write(Encode(p1))
	buf.Write(Encode(p2))
	buf.Write(Encode(p3))

	var d Decoder
	got, err := d.Feed(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]byte{p1, p2, p3}
	if len(got) != len(want) {
		t.Fatalf("got %d payloads, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("payload %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestDecoderPartialFrameThenRest(t *testing.T) {
	payload := []byte("split across reads")
	frame := Encode(payload)
	split := HeaderSize + 3

	var d Decoder
	out, err := d.Feed(frame[:split])
	if err != nil {
		t.Fatalf("unexpected error on partial feed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d payloads from a partial frame, want 0", len(out))
	}
	if d.Buffered() != split {
		t.Fatalf("Buffered() = %d, want %d", d.Buffered(), split)
	}

	out, err = d.Feed(frame[split:])
	if err != nil {
		t.Fatalf("unexpected error completing frame: %v", err)
	}
	if len(out) != 1 || !bytes.Equal(out[0], payload) {
		t.Fatalf("got %v, want single payload %q", out, payload)
	}
}

func TestDecoderChecksumMismatch(t *testing.T) {
	frame := Encode([]byte("tamper me"))
	frame[len(frame)-1] ^= 0xFF // flip a payload bit without updating the checksum

	var d Decoder
	_, err := d.Feed(frame)
	if !errors.Is(err, ErrChecksumBad) {
		t.Fatalf("got err %v, want ErrChecksumBad", err)
	}
}

func TestDecoderSignatureMismatch(t *testing.T) {
	frame := Encode([]byte("payload"))
	binary.BigEndian.PutUint32(frame[0:4], Signature+1)

	var d Decoder
	_, err := d.Feed(frame)
	if !errors.Is(err, ErrProtocolDesync) {
		t.Fatalf("got err %v, want ErrProtocolDesync", err)
	}
}

func TestDecoderEmptyPayload(t *testing.T) {
	var d Decoder
	out, err := d.Feed(Encode(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 0 {
		t.Fatalf("got %v, want one empty payload", out)
	}
}
