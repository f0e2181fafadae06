// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpbridge

import "sync"

// ErrSessionFailed is the failure sentinel a parked handler receives
// when its gate is released by teardown or client disconnect rather
// than a terminal HTTPRESPONSE.
var ErrSessionFailed = &gateError{"httpbridge: session closed without a response"}

type gateError struct{ msg string }

func (e *gateError) Error() string { return e.msg }

// Gate is a single-shot release: exactly one of its first Release call
// takes effect, and Wait blocks until that happens. Additional Release
// calls are no-ops, which is what lets both the HTTPRESPONSE handler
// and a connection-closure callback race to release the same gate
// safely.
type Gate struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewGate returns a Gate ready to be waited on.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Release unblocks Wait with err (nil for success). Only the first call
// has any effect.
func (g *Gate) Release(err error) {
	g.once.Do(func() {
		g.err = err
		close(g.done)
	})
}

// Wait blocks until Release is called and returns the error it was
// released with.
func (g *Gate) Wait() error {
	<-g.done
	return g.err
}
