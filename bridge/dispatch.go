// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Driver is the capability set a concrete endpoint owner implements to
// customize behavior the core leaves as policy: reacting to a terminal
// error, and handling command tags the built-in table doesn't know
// about. It stands in for the virtual hook set a C++ implementation
// would expose through subclassing.
type Driver interface {
	// HandleError is invoked once, synchronously, at the start of
	// triggerError, before teardown proceeds. Implementations should
	// not block.
	HandleError(msg string)

	// HandlePacket is offered any command tag not in the built-in
	// table. It returns true if it consumed the message. Returning
	// false (or having no Driver installed) causes the message to be
	// dropped silently — unrecognized commands are not errors, so that
	// forward-compatible helper extensions don't kill the link.
	HandlePacket(command string, seqno uint32, content []byte) bool
}

// noopDriver is installed when an Endpoint is constructed without an
// explicit Driver. It logs nothing extra and never claims an unknown
// command.
type noopDriver struct{}

func (noopDriver) HandleError(string) {}

func (noopDriver) HandlePacket(string, uint32, []byte) bool { return false }

// commandHandler processes one decoded command's content. Returning an
// error routes through triggerError exactly once, by the dispatch loop.
type commandHandler func(ep *Endpoint, seqno uint32, content []byte) error

// builtinHandlers is the command dispatch table (C5). Populated in
// commands.go's init so handler bodies stay colocated with the
// sub-messages they parse.
var builtinHandlers = map[string]commandHandler{}

// dispatch looks up cmd.Command in the built-in table and invokes its
// handler, falling back to the endpoint's Driver for anything unknown.
// Unknown commands that the Driver also declines are dropped silently,
// per spec: a subclass-extensible tag space must not kill the link.
func (ep *Endpoint) dispatch(cmd Command) {
	if handler, ok := builtinHandlers[cmd.Command]; ok {
		if err := handler(ep, cmd.Seqno, cmd.Content); err != nil {
			ep.triggerError(err)
		}
		return
	}

	if ep.driver.HandlePacket(cmd.Command, cmd.Seqno, cmd.Content) {
		return
	}

	ep.logger().Debug("dropping unrecognized command", "command", cmd.Command)
}

// unparsable wraps a sub-message decode failure with the command tag,
// for handlers that fail to CBOR-decode their content.
func unparsable(command string, cause error) error {
	return &unparsableCommandError{command: command, cause: cause}
}
