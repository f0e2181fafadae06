// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"time"

	"golang.org/x/sys/unix"
)

// ipcHardKill delivers SIGKILL to pid, if any, and deregisters it from
// the IPC registry. A no-op when pid is zero, so teardown can call it
// unconditionally whether or not a child was ever launched.
func (ep *Endpoint) ipcHardKill(pid int) {
	ep.killChild(pid, unix.SIGKILL)
}

// ipcSoftKill delivers SIGTERM to pid and deregisters it, giving the
// helper a chance to exit cleanly before a later hard-kill.
func (ep *Endpoint) ipcSoftKill(pid int) {
	ep.killChild(pid, unix.SIGTERM)
}

// SoftKill delivers SIGTERM to the helper child, if any, so it can
// exit cleanly before teardown's SIGKILL. A no-op for endpoints with
// no child.
func (ep *Endpoint) SoftKill() {
	ep.mu.Lock()
	pid := ep.helperPID
	ep.mu.Unlock()
	ep.ipcSoftKill(pid)
}

func (ep *Endpoint) killChild(pid int, sig unix.Signal) {
	if pid == 0 {
		return
	}
	if ep.Registry != nil {
		ep.Registry.Remove(pid)
	}
	if err := unix.Kill(pid, sig); err != nil {
		ep.logger().Debug("signal delivery failed", "pid", pid, "signal", sig, "error", err)
	}
}

// EnableLiveness arms the periodic PING timer: every interval, a PING
// is sent; if no PONG has been received within timeout of the last one
// seen, the endpoint is torn down with ErrPingTimeout. A timeout of
// zero defaults to three intervals. When the endpoint is not yet
// running, the timer starts once RunIPC, Attach, or SetWriteCallback
// brings a transport up.
func (ep *Endpoint) EnableLiveness(interval, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * interval
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.pingInterval = interval
	ep.pingTimeout = timeout
	if ep.running() {
		ep.startLivenessLocked()
	}
}

// startLivenessLocked schedules the armed liveness timer. Must be
// called with ep.mu held; the TimerService must not invoke the
// callback synchronously from Schedule.
func (ep *Endpoint) startLivenessLocked() {
	if ep.Timers == nil || ep.hasPingTimer || ep.pingInterval <= 0 {
		return
	}
	ep.lastPong = time.Now()
	ep.pingTimer = ep.Timers.Schedule(ep.pingInterval, ep.livenessTick)
	ep.hasPingTimer = true
}

// livenessTick is the TimerService callback: check whether the last
// PONG is overdue, and if it is not, send a PING. Returning true keeps the timer
// scheduled; returning false (or the endpoint no longer running) stops
// it.
func (ep *Endpoint) livenessTick() bool {
	ep.mu.Lock()
	if !ep.running() {
		ep.mu.Unlock()
		return false
	}
	lastPong := ep.lastPong
	timeout := ep.pingTimeout
	ep.mu.Unlock()

	if timeout > 0 && time.Since(lastPong) > timeout {
		ep.triggerError(ErrPingTimeout)
		return false
	}

	ep.sendPing()
	return true
}
