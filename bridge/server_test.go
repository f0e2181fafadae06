// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/ipcregistry"
	"github.com/Sophic-Technical-Solutions/kismet/lib/codec"
	"github.com/Sophic-Technical-Solutions/kismet/transport"
	"github.com/Sophic-Technical-Solutions/kismet/wire"
)

func TestAttachServerPingPong(t *testing.T) {
	listener, err := transport.NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &AttachServer{
		Listener: listener,
		NewEndpoint: func() *Endpoint {
			ep := NewEndpoint(nil)
			ep.Registry = ipcregistry.New()
			ep.Logger = quiet
			return ep
		},
		Logger: quiet,
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer server.Stop()

	conn, err := net.Dial("tcp", listener.Address())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(encodeCommand(t, CmdPing, 42, Ping{})); err != nil {
		t.Fatalf("write PING: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var decoder wire.Decoder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read PONG frame: %v", err)
		}
		payloads, err := decoder.Feed(buf[:n])
		if err != nil {
			t.Fatalf("decode PONG frame: %v", err)
		}
		if len(payloads) == 0 {
			continue
		}

		var cmd Command
		if err := codec.Unmarshal(payloads[0], &cmd); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if cmd.Command != CmdPong {
			t.Fatalf("reply command = %q, want %q", cmd.Command, CmdPong)
		}
		var pong Pong
		if err := codec.Unmarshal(cmd.Content, &pong); err != nil {
			t.Fatalf("unmarshal PONG: %v", err)
		}
		if pong.PingSeqno != 42 {
			t.Fatalf("ping_seqno = %d, want 42", pong.PingSeqno)
		}
		return
	}
}

func TestAttachServerStopClosesEndpoints(t *testing.T) {
	listener, err := transport.NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	attached := make(chan *Endpoint, 1)
	server := &AttachServer{
		Listener: listener,
		NewEndpoint: func() *Endpoint {
			ep := NewEndpoint(nil)
			ep.Registry = ipcregistry.New()
			ep.Logger = quiet
			attached <- ep
			return ep
		},
		Logger: quiet,
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn, err := net.Dial("tcp", listener.Address())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ep *Endpoint
	select {
	case ep = <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("no endpoint attached for the dialed connection")
	}

	server.Stop()

	select {
	case <-ep.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint not torn down by server Stop")
	}
}
