// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/httpbridge"
	"github.com/Sophic-Technical-Solutions/kismet/ipcregistry"
	"github.com/Sophic-Technical-Solutions/kismet/lib/codec"
	"github.com/Sophic-Technical-Solutions/kismet/lib/netutil"
	"github.com/Sophic-Technical-Solutions/kismet/transport"
	"github.com/Sophic-Technical-Solutions/kismet/wire"
)

// httpSession is one parked host-server request waiting for the helper
// to stream back HTTPRESPONSE chunks.
type httpSession struct {
	connection HTTPConnection
	gate       *httpbridge.Gate
}

// Endpoint is one instance of the external helper protocol, bound to
// exactly one transport. The zero value is not usable; construct one
// with [NewEndpoint].
type Endpoint struct {
	mu sync.Mutex

	stopped   bool
	cancelled bool

	seqno    uint32
	lastPong time.Time

	hasPingTimer bool
	pingTimer    TimerHandle
	pingInterval time.Duration
	pingTimeout  time.Duration

	stream  transport.Stream
	writeCB func([]byte) error
	decoder wire.Decoder

	eventbusListeners map[string]ListenerID
	httpSessions      map[uint32]*httpSession
	nextReqID         uint32

	helperBinary string
	helperArgs   []string
	helperPID    int
	binPathWarn  sync.Once

	// writeMu serializes frame writes so concurrent Send calls from
	// host-server workers and event-bus callbacks cannot interleave
	// bytes on the stream. It is always acquired after ep.mu is
	// released, never while holding it.
	writeMu sync.Mutex

	Config     ConfigStore
	MessageBus MessageBus
	Timers     TimerService
	Events     EventBus
	HTTPServer HTTPServer
	Registry   *ipcregistry.Registry

	driver Driver
	Logger *slog.Logger

	readCancel context.CancelFunc
	readDone   chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewEndpoint constructs a stopped Endpoint. driver may be nil, in
// which case unknown commands are always dropped silently and
// HandleError is a no-op. The Registry field starts out as
// ipcregistry.Default(); callers may replace it before launching a
// helper.
func NewEndpoint(driver Driver) *Endpoint {
	if driver == nil {
		driver = noopDriver{}
	}
	return &Endpoint{
		eventbusListeners: make(map[string]ListenerID),
		httpSessions:      make(map[uint32]*httpSession),
		driver:            driver,
		stopped:           true,
		Registry:          ipcregistry.Default(),
		done:              make(chan struct{}),
	}
}

// Done returns a channel that is closed once the endpoint has been
// fully torn down, whether by Close, a transport error, helper exit,
// or a remote SHUTDOWN.
func (ep *Endpoint) Done() <-chan struct{} {
	return ep.done
}

func (ep *Endpoint) logger() *slog.Logger {
	if ep.Logger != nil {
		return ep.Logger
	}
	return slog.Default()
}

// running reports whether new I/O is currently permitted.
func (ep *Endpoint) running() bool {
	return !ep.stopped && !ep.cancelled
}

// Attach binds stream as the endpoint's transport and starts the read
// loop. It fails if the endpoint already has an active transport —
// pipes, an attached stream, and a delegated write callback are
// mutually exclusive (at most one transport is ever active).
func (ep *Endpoint) Attach(ctx context.Context, stream transport.Stream) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.running() {
		return ErrAlreadyRunning
	}

	ep.stream = stream
	ep.stopped = false
	ep.cancelled = false
	ep.startLivenessLocked()
	ep.startReadLoop(ctx, stream)
	return nil
}

// SetWriteCallback installs cb as a write delegate: outbound frames are
// handed to cb instead of written to a stream this endpoint owns.
// Inbound bytes must be handed to [Endpoint.Ingest] by whatever other
// subsystem owns the real connection. Mutually exclusive with Attach
// and RunIPC.
func (ep *Endpoint) SetWriteCallback(cb func([]byte) error) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.running() {
		return ErrAlreadyRunning
	}

	ep.writeCB = cb
	ep.stopped = false
	ep.cancelled = false
	ep.startLivenessLocked()
	return nil
}

// Ingest feeds externally-read bytes into the endpoint's frame decoder,
// for use alongside SetWriteCallback when some other subsystem owns
// the actual read loop.
func (ep *Endpoint) Ingest(data []byte) {
	ep.mu.Lock()
	if !ep.running() {
		// Post-teardown bytes are ignored, not an error.
		ep.mu.Unlock()
		return
	}
	payloads, err := ep.decoder.Feed(data)
	ep.mu.Unlock()

	ep.deliverFrames(payloads, err)
}

// startReadLoop launches the background goroutine that owns the single
// outstanding read for stream. Must be called with ep.mu held; the
// goroutine itself acquires the lock only around brief state updates.
func (ep *Endpoint) startReadLoop(ctx context.Context, stream transport.Stream) {
	readCtx, cancel := context.WithCancel(ctx)
	ep.readCancel = cancel
	ep.readDone = make(chan struct{})

	go func() {
		defer close(ep.readDone)
		ep.readLoop(readCtx, stream)
	}()
}

// readLoop keeps a single outstanding read on the transport: each
// completed read extracts zero or more complete frames and reposts, or
// reports an error. A read returning >0 bytes continues the loop; <=0
// closes the endpoint, for pipes and attached streams alike.
func (ep *Endpoint) readLoop(ctx context.Context, stream transport.Stream) {
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := stream.Read(buf)
		if n == 0 && err == nil {
			err = io.EOF
		}
		if n > 0 {
			ep.mu.Lock()
			payloads, decodeErr := ep.decoder.Feed(buf[:n])
			ep.mu.Unlock()
			ep.deliverFrames(payloads, decodeErr)
			if decodeErr != nil {
				return
			}
		}
		if err != nil {
			ep.handleReadError(ctx, err)
			return
		}
	}
}

// handleReadError classifies a transport read failure: a cancellation
// this endpoint itself initiated is silent; EOF logs quietly; anything
// else logs the message. Both non-cancel cases trigger teardown.
func (ep *Endpoint) handleReadError(ctx context.Context, err error) {
	if ctx.Err() != nil {
		// We cancelled this read ourselves (Close/teardown); silent.
		return
	}
	if netutil.IsExpectedCloseError(err) {
		ep.mu.Lock()
		truncated := ep.decoder.Buffered() > 0
		ep.mu.Unlock()
		if truncated {
			ep.triggerError(fmt.Errorf("%w: stream ended mid-frame", ErrFrameTruncated))
			return
		}
		ep.logger().Debug("external stream reached end of input", "error", err)
		ep.triggerError(fmt.Errorf("%w: external socket closed", ErrTransportClosed))
		return
	}
	ep.triggerError(fmt.Errorf("%w: %v", ErrTransportClosed, err))
}

// deliverFrames decodes and dispatches every payload extracted by the
// frame decoder, then reports a decode failure (if any) as the
// terminal error for this connection.
func (ep *Endpoint) deliverFrames(payloads [][]byte, decodeErr error) {
	for _, payload := range payloads {
		ep.mu.Lock()
		running := ep.running()
		ep.mu.Unlock()
		if !running {
			// A handler earlier in this batch tore the endpoint down;
			// the rest of the batch is discarded.
			return
		}

		var cmd Command
		if err := codec.Unmarshal(payload, &cmd); err != nil {
			ep.triggerError(fmt.Errorf("malformed command envelope: %w", err))
			continue
		}
		ep.dispatch(cmd)
	}
	if decodeErr != nil {
		ep.triggerError(fmt.Errorf("frame decode failed: %w", decodeErr))
	}
}

// triggerError is idempotent on stopped: it invokes the Driver's error
// hook once, then tears the endpoint down fully. Safe to call from any
// handler, any number of times.
func (ep *Endpoint) triggerError(err error) {
	ep.mu.Lock()
	alreadyStopped := ep.stopped
	ep.mu.Unlock()
	if alreadyStopped {
		return
	}

	ep.logger().Error("external interface error", "error", err)
	ep.driver.HandleError(err.Error())
	ep.Close()
}

// Close tears the endpoint down permanently: listeners removed, parked
// sessions failed, timers cancelled, transports closed, and any helper
// child hard-killed. Safe to call multiple times and from any handler.
func (ep *Endpoint) Close() {
	ep.mu.Lock()

	if ep.stopped && ep.cancelled {
		ep.mu.Unlock()
		return
	}
	ep.stopped = true
	ep.cancelled = true

	for name, id := range ep.eventbusListeners {
		if ep.Events != nil {
			ep.Events.Remove(id)
		}
		delete(ep.eventbusListeners, name)
	}

	sessions := make([]*httpSession, 0, len(ep.httpSessions))
	for reqID, session := range ep.httpSessions {
		sessions = append(sessions, session)
		delete(ep.httpSessions, reqID)
	}

	if ep.hasPingTimer {
		if ep.Timers != nil {
			ep.Timers.Cancel(ep.pingTimer)
		}
		ep.hasPingTimer = false
	}

	stream := ep.stream
	ep.stream = nil
	ep.writeCB = nil

	pid := ep.helperPID
	ep.helperPID = 0

	readCancel := ep.readCancel
	ep.mu.Unlock()

	// Release parked handlers and close resources outside the lock —
	// they may call back into the endpoint (e.g. a closure callback
	// invoking Close again, which the stopped/cancelled guard above
	// makes a no-op).
	for _, session := range sessions {
		session.gate.Release(httpbridge.ErrSessionFailed)
	}

	if readCancel != nil {
		readCancel()
	}
	if stream != nil {
		stream.Close()
	}

	ep.ipcHardKill(pid)

	ep.doneOnce.Do(func() { close(ep.done) })
}

// PingTimeout reports the current liveness timeout. Zero means
// liveness checking is disabled.
func (ep *Endpoint) PingTimeout() time.Duration {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.pingTimeout
}
