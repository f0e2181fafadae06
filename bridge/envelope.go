// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// Command is the envelope carried inside every frame's payload: a
// command tag, a monotonically assigned sequence number, and an
// opaque, command-specific sub-message.
type Command struct {
	Command string `cbor:"command"`
	Seqno   uint32 `cbor:"seqno"`
	Content []byte `cbor:"content"`
}

// Built-in command tags, inbound and outbound. Names are preserved
// from the helper ecosystem's existing schema set rather than invented
// fresh, so a reimplementation in another language could still
// interoperate field-for-field. Exported so Driver implementations and
// helper-side programs can speak the same tag space.
const (
	CmdMessage              = "MESSAGE"
	CmdPing                 = "PING"
	CmdPong                 = "PONG"
	CmdShutdown             = "SHUTDOWN"
	CmdHTTPRegisterURI      = "HTTPREGISTERURI"
	CmdHTTPRequest          = "HTTPREQUEST"
	CmdHTTPResponse         = "HTTPRESPONSE"
	CmdHTTPAuthTokenRequest = "HTTPAUTHREQ"
	CmdHTTPAuthToken        = "HTTPAUTH"
	CmdEventbusRegister     = "EVENTBUSREGISTER"
	CmdEventbusPublish      = "EVENTBUSPUBLISH"
	CmdEventbusEvent        = "EVENT"
)

// MsgbusMessage is the MESSAGE sub-message: free text plus a severity
// level forwarded to the host's message bus.
type MsgbusMessage struct {
	MessageText  string `cbor:"msgtext"`
	MessageLevel int    `cbor:"msglevel"`
}

// Ping is the PING sub-message. It carries no fields of its own; the
// envelope's seqno is what PONG echoes back.
type Ping struct{}

// Pong echoes the seqno of the PING it answers, independent of the
// envelope's own seqno.
type Pong struct {
	PingSeqno uint32 `cbor:"ping_seqno"`
}

// ExternalShutdown carries the remote-provided reason for a SHUTDOWN
// command.
type ExternalShutdown struct {
	Reason string `cbor:"reason"`
}

// HTTPRegisterURI registers a proxied route on the host's HTTP server.
type HTTPRegisterURI struct {
	URI    string `cbor:"uri"`
	Method string `cbor:"method"`
}

// HTTPVariable is one key/value pair extracted from an HTTPConnection's
// request variables (query parameters, path variables, or form
// values — the host decides which).
type HTTPVariable struct {
	Field   string `cbor:"field"`
	Content string `cbor:"content"`
}

// HTTPRequest is the outbound sub-message sent to the helper when a
// proxied route is hit.
type HTTPRequest struct {
	ReqID        uint32         `cbor:"req_id"`
	URI          string         `cbor:"uri"`
	Method       string         `cbor:"method"`
	VariableData []HTTPVariable `cbor:"variable_data"`
}

// HTTPResponseHeader is one header the helper asks the host to set on
// the proxied connection, in the order they must be applied (headers
// must precede body bytes on the underlying connection).
type HTTPResponseHeader struct {
	Header  string `cbor:"header"`
	Content string `cbor:"content"`
}

// HTTPResponse carries a chunk (or the terminal chunk) of a proxied
// response. Status and Headers are optional on every chunk after the
// first; a second Status is accepted and treated as a no-op.
type HTTPResponse struct {
	ReqID         uint32               `cbor:"req_id"`
	Headers       []HTTPResponseHeader `cbor:"headers,omitempty"`
	Status        int                  `cbor:"status,omitempty"`
	HasStatus     bool                 `cbor:"has_status"`
	Content       []byte               `cbor:"content,omitempty"`
	CloseResponse bool                 `cbor:"close_response"`
}

// HTTPAuthTokenRequest asks the bridge to mint a logon-role auth token
// via the host's HTTP server.
type HTTPAuthTokenRequest struct{}

// HTTPAuthToken carries the minted token back to the helper.
type HTTPAuthToken struct {
	Token string `cbor:"token"`
}

// EventbusRegisterListener lists event names the helper wants
// forwarded as EVENT commands.
type EventbusRegisterListener struct {
	EventNames []string `cbor:"event_names"`
}

// EventbusPublishEvent carries a helper-originated event to publish on
// the host event bus, serialized as JSON under a well-known field (see
// handleEventbusPublish in commands.go).
type EventbusPublishEvent struct {
	EventType string `cbor:"event_type"`
	EventJSON string `cbor:"event_json"`
}

// EventbusEvent is the outbound sub-message forwarded to the helper
// when a registered host event fires.
type EventbusEvent struct {
	EventName string `cbor:"event_name"`
	EventJSON string `cbor:"event_json"`
}
