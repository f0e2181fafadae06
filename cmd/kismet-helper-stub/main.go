// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/pflag"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
	"github.com/Sophic-Technical-Solutions/kismet/lib/codec"
	"github.com/Sophic-Technical-Solutions/kismet/lib/process"
	"github.com/Sophic-Technical-Solutions/kismet/lib/version"
	"github.com/Sophic-Technical-Solutions/kismet/wire"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		inFD        int
		outFD       int
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("kismet-helper-stub", pflag.ContinueOnError)
	flagSet.IntVar(&inFD, "in-fd", -1, "file descriptor the stub reads framed commands from")
	flagSet.IntVar(&outFD, "out-fd", -1, "file descriptor the stub writes framed commands to")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("kismet-helper-stub %s\n", version.Info())
		return nil
	}

	if inFD < 0 || outFD < 0 {
		return fmt.Errorf("--in-fd and --out-fd are required (this binary is spawned by the bridge)")
	}

	in := os.NewFile(uintptr(inFD), "bridge-in")
	out := os.NewFile(uintptr(outFD), "bridge-out")
	if in == nil || out == nil {
		return fmt.Errorf("file descriptors %d/%d are not open", inFD, outFD)
	}
	defer in.Close()
	defer out.Close()

	h := &helper{out: out}
	if err := h.announce(); err != nil {
		return err
	}
	return h.serve(in)
}

// helper is the stub's protocol state: an outbound frame writer with
// its own seqno counter, mirroring the host side of the envelope
// contract.
type helper struct {
	mu    sync.Mutex
	seqno uint32
	out   *os.File
}

// send frames and writes one command envelope.
func (h *helper) send(command string, content any) error {
	data, err := codec.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode %s content: %w", command, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seqno++
	if h.seqno == 0 {
		h.seqno = 1
	}
	payload, err := codec.Marshal(bridge.Command{
		Command: command,
		Seqno:   h.seqno,
		Content: data,
	})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", command, err)
	}
	if _, err := h.out.Write(wire.Encode(payload)); err != nil {
		return fmt.Errorf("write %s frame: %w", command, err)
	}
	return nil
}

// announce tells the host we are up and registers the demo HTTP route.
func (h *helper) announce() error {
	if err := h.send(bridge.CmdMessage, bridge.MsgbusMessage{
		MessageText:  "helper stub started",
		MessageLevel: int(bridge.MessageLevelInfo),
	}); err != nil {
		return err
	}
	return h.send(bridge.CmdHTTPRegisterURI, bridge.HTTPRegisterURI{
		URI:    "/stub",
		Method: "GET",
	})
}

// serve reads framed commands from in until the stream closes or the
// host requests shutdown.
func (h *helper) serve(in *os.File) error {
	var decoder wire.Decoder
	buf := make([]byte, 64*1024)

	for {
		n, err := in.Read(buf)
		if n > 0 {
			payloads, decodeErr := decoder.Feed(buf[:n])
			if decodeErr != nil {
				return fmt.Errorf("frame decode: %w", decodeErr)
			}
			for _, payload := range payloads {
				var cmd bridge.Command
				if err := codec.Unmarshal(payload, &cmd); err != nil {
					return fmt.Errorf("malformed envelope: %w", err)
				}
				done, err := h.handle(cmd)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		}
		if err != nil {
			// Host closed the pipe; normal teardown.
			return nil
		}
	}
}

// handle processes one inbound command. It reports done=true when the
// host asked us to exit.
func (h *helper) handle(cmd bridge.Command) (done bool, err error) {
	switch cmd.Command {
	case bridge.CmdPing:
		return false, h.send(bridge.CmdPong, bridge.Pong{PingSeqno: cmd.Seqno})

	case bridge.CmdShutdown:
		var shutdown bridge.ExternalShutdown
		codec.Unmarshal(cmd.Content, &shutdown)
		fmt.Fprintf(os.Stderr, "kismet-helper-stub: shutdown requested: %s\n", shutdown.Reason)
		return true, nil

	case bridge.CmdHTTPRequest:
		var req bridge.HTTPRequest
		if err := codec.Unmarshal(cmd.Content, &req); err != nil {
			return false, fmt.Errorf("malformed HTTPREQUEST: %w", err)
		}
		return false, h.respond(req)

	case bridge.CmdEventbusEvent:
		// Forwarded host events are dropped; the stub has no
		// subscriptions of its own.
		return false, nil

	default:
		// Unknown commands are ignored so a newer host doesn't kill
		// the stub.
		return false, nil
	}
}

// respond streams a two-chunk canned response for a proxied request:
// one body-only chunk, then the terminal chunk.
func (h *helper) respond(req bridge.HTTPRequest) error {
	if err := h.send(bridge.CmdHTTPResponse, bridge.HTTPResponse{
		ReqID:     req.ReqID,
		Headers:   []bridge.HTTPResponseHeader{{Header: "Content-Type", Content: "text/plain"}},
		HasStatus: true,
		Status:    200,
		Content:   []byte("hello from the helper stub\n"),
	}); err != nil {
		return err
	}
	return h.send(bridge.CmdHTTPResponse, bridge.HTTPResponse{
		ReqID:         req.ReqID,
		Content:       []byte(fmt.Sprintf("you asked for %s %s\n", req.Method, req.URI)),
		CloseResponse: true,
	})
}
