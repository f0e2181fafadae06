// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
)

func startServer(t *testing.T, server *NetHTTPServer) {
	t.Helper()
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Stop(ctx)
	})
}

func TestNetHTTPServerProxiedRoute(t *testing.T) {
	server := NewNetHTTPServer("127.0.0.1:0")

	varsCh := make(chan map[string]string, 1)
	server.RegisterRoute("/x", "GET", func(conn bridge.HTTPConnection) {
		varsCh <- conn.Variables()
		conn.AppendHeader("X-T", "v")
		conn.SetStatus(http.StatusCreated)
		conn.Write([]byte("hi"))
		conn.Complete()
	})

	startServer(t, server)

	resp, err := http.Get("http://" + server.Address() + "/x?a=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got := resp.Header.Get("X-T"); got != "v" {
		t.Fatalf("X-T header = %q, want %q", got, "v")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != "hi" {
		t.Fatalf("body = %q, want %q", body, "hi")
	}

	select {
	case vars := <-varsCh:
		if vars["a"] != "1" {
			t.Fatalf("variables = %v, want a=1", vars)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never reported its variables")
	}
}

func TestNetHTTPServerReRegisterReplacesHandler(t *testing.T) {
	server := NewNetHTTPServer("127.0.0.1:0")

	server.RegisterRoute("/x", "GET", func(conn bridge.HTTPConnection) {
		conn.Write([]byte("old"))
	})
	server.RegisterRoute("/x", "GET", func(conn bridge.HTTPConnection) {
		conn.Write([]byte("new"))
	})

	startServer(t, server)

	resp, err := http.Get("http://" + server.Address() + "/x")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "new" {
		t.Fatalf("body = %q, want the replacement handler's output", body)
	}
}

func TestNetHTTPServerAuth(t *testing.T) {
	server := NewNetHTTPServer("127.0.0.1:0")
	server.RequireAuth = true
	server.RegisterRoute("/secure", "GET", func(conn bridge.HTTPConnection) {
		conn.Write([]byte("ok"))
	})

	startServer(t, server)

	resp, err := http.Get("http://" + server.Address() + "/secure")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	token, err := server.MintAuthToken()
	if err != nil {
		t.Fatalf("MintAuthToken: %v", err)
	}
	req, _ := http.NewRequest("GET", "http://"+server.Address()+"/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestRequestVariablesFormBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/x?a=1", strings.NewReader("b=2&c=3"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	vars := requestVariables(r)
	if vars["a"] != "1" || vars["b"] != "2" || vars["c"] != "3" {
		t.Fatalf("variables = %v, want query and form fields merged", vars)
	}
}

func TestConnectionClosureCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/x", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	conn := newNetHTTPConnection(w, r)
	fired := make(chan struct{})
	conn.SetClosureCallback(func() { close(fired) })

	cancel()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("closure callback did not fire on client disconnect")
	}
}

func TestConnectionCompleteSuppressesClosureCallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/x", nil)
	w := httptest.NewRecorder()

	conn := newNetHTTPConnection(w, r)
	fired := make(chan struct{}, 1)
	conn.SetClosureCallback(func() { fired <- struct{}{} })
	conn.Complete()

	select {
	case <-fired:
		t.Fatal("closure callback fired after Complete")
	case <-time.After(50 * time.Millisecond):
	}
}
