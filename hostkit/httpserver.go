// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
	"github.com/Sophic-Technical-Solutions/kismet/lib/netutil"
)

// NetHTTPServer is a net/http-backed bridge.HTTPServer. Helper
// endpoints register proxy routes on it via HTTPREGISTERURI; each
// matching request parks its worker goroutine inside the registered
// handler until the helper streams the response back.
type NetHTTPServer struct {
	// RequireAuth, when set, rejects proxied requests that don't carry
	// a bearer token previously minted through MintAuthToken. This is
	// the reference stand-in for a real host's logon-role policy.
	RequireAuth bool

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	addr string
	mux  *http.ServeMux

	mu         sync.Mutex
	routes     map[string]func(bridge.HTTPConnection)
	registered map[string]bool
	minted     map[string]bool

	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// NewNetHTTPServer returns a server that will bind addr (e.g.
// "127.0.0.1:0") when Start is called.
func NewNetHTTPServer(addr string) *NetHTTPServer {
	return &NetHTTPServer{
		addr:       addr,
		mux:        http.NewServeMux(),
		routes:     make(map[string]func(bridge.HTTPConnection)),
		registered: make(map[string]bool),
		minted:     make(map[string]bool),
	}
}

func (s *NetHTTPServer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// RegisterRoute implements bridge.HTTPServer. Registering the same
// uri/method pair again replaces the previous handler, which happens
// when a helper reconnects and re-announces its routes.
func (s *NetHTTPServer) RegisterRoute(uri, method string, handler func(bridge.HTTPConnection)) {
	pattern := method + " " + uri

	s.mu.Lock()
	s.routes[pattern] = handler
	alreadyBound := s.registered[pattern]
	if !alreadyBound {
		s.registered[pattern] = true
	}
	s.mu.Unlock()

	if !alreadyBound {
		s.mux.HandleFunc(pattern, s.serve)
	}
	s.logger().Debug("registered proxied route", "method", method, "uri", uri)
}

// serve looks up the route handler for the matched pattern and runs it
// on this worker goroutine, where it will park until the helper's
// terminal response chunk arrives.
func (s *NetHTTPServer) serve(w http.ResponseWriter, r *http.Request) {
	if s.RequireAuth && !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	handler := s.routes[r.Pattern]
	s.mu.Unlock()
	if handler == nil {
		http.NotFound(w, r)
		return
	}

	conn := newNetHTTPConnection(w, r)
	handler(conn)
	conn.Complete()
}

func (s *NetHTTPServer) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minted[token]
}

// MintAuthToken generates an opaque logon-role token and records it
// for later validation. Satisfies the auth-token hook the bridge's
// HTTPAUTHREQ handler looks for.
func (s *NetHTTPServer) MintAuthToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("minting auth token: %w", err)
	}
	token := hex.EncodeToString(raw)

	s.mu.Lock()
	s.minted[token] = true
	s.mu.Unlock()
	return token, nil
}

// Start binds the listener and begins serving in the background.
func (s *NetHTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("hostkit: listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:     s.mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger().Error("http server failed", "error", err)
		}
	}()

	s.logger().Info("http server started", "address", listener.Addr().String())
	return nil
}

// Address returns the bound "host:port", useful when binding port 0.
// Empty before Start.
func (s *NetHTTPServer) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight requests to
// drain.
func (s *NetHTTPServer) Stop(ctx context.Context) {
	if s.server == nil {
		return
	}
	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
	}
	<-s.done
}

// netHTTPConnection adapts one in-flight net/http request to the
// bridge.HTTPConnection interface.
type netHTTPConnection struct {
	w    http.ResponseWriter
	r    *http.Request
	vars map[string]string

	mu          sync.Mutex
	status      int
	wroteHeader bool

	completeOnce sync.Once
	completed    chan struct{}
}

func newNetHTTPConnection(w http.ResponseWriter, r *http.Request) *netHTTPConnection {
	return &netHTTPConnection{
		w:         w,
		r:         r,
		vars:      requestVariables(r),
		completed: make(chan struct{}),
	}
}

// requestVariables materializes the plain key→value mapping forwarded
// to the helper: query parameters, plus form fields for
// form-encoded bodies. The body read is bounded so a hostile client
// cannot balloon memory before the request reaches the helper.
func requestVariables(r *http.Request) map[string]string {
	vars := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			vars[key] = values[0]
		}
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		body, err := netutil.ReadBounded(r.Body, netutil.MaxFormBodySize)
		if err != nil {
			return vars
		}
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return vars
		}
		for key, values := range form {
			if len(values) > 0 {
				vars[key] = values[0]
			}
		}
	}
	return vars
}

func (c *netHTTPConnection) URI() string  { return c.r.URL.Path }
func (c *netHTTPConnection) Verb() string { return c.r.Method }

func (c *netHTTPConnection) Variables() map[string]string {
	vars := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		vars[k] = v
	}
	return vars
}

// AppendHeader adds a response header. Headers arriving after the
// first body byte are dropped — the wire already carries them too
// late.
func (c *netHTTPConnection) AppendHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wroteHeader {
		return
	}
	c.w.Header().Add(name, value)
}

// SetStatus records the response status. A second status is a no-op.
func (c *netHTTPConnection) SetStatus(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == 0 && !c.wroteHeader {
		c.status = code
	}
}

// Write streams response body bytes to the client, flushing each
// chunk so long-lived streaming responses make progress.
func (c *netHTTPConnection) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeHeaderLocked()
	n, err := c.w.Write(p)
	if flusher, ok := c.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return n, err
}

func (c *netHTTPConnection) writeHeaderLocked() {
	if c.wroteHeader {
		return
	}
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	c.w.WriteHeader(status)
	c.wroteHeader = true
}

// Complete finalizes the response. Idempotent; also called by the
// server after the route handler returns, so a handler that already
// completed is not double-finalized.
func (c *netHTTPConnection) Complete() {
	c.mu.Lock()
	c.writeHeaderLocked()
	c.mu.Unlock()
	c.completeOnce.Do(func() { close(c.completed) })
}

// SetClosureCallback implements bridge.HTTPConnection: fn fires if the
// client goes away before the response completes.
func (c *netHTTPConnection) SetClosureCallback(fn func()) {
	go func() {
		select {
		case <-c.r.Context().Done():
			fn()
		case <-c.completed:
		}
	}()
}
