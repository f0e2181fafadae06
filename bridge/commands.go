// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/httpbridge"
	"github.com/Sophic-Technical-Solutions/kismet/lib/codec"
)

func init() {
	builtinHandlers[CmdMessage] = handleMessage
	builtinHandlers[CmdPing] = handlePing
	builtinHandlers[CmdPong] = handlePong
	builtinHandlers[CmdShutdown] = handleShutdown
	builtinHandlers[CmdHTTPRegisterURI] = handleHTTPRegisterURI
	builtinHandlers[CmdHTTPResponse] = handleHTTPResponse
	builtinHandlers[CmdHTTPAuthTokenRequest] = handleHTTPAuthTokenRequest
	builtinHandlers[CmdEventbusRegister] = handleEventbusRegister
	builtinHandlers[CmdEventbusPublish] = handleEventbusPublish
}

// handleMessage forwards a MESSAGE command's text and level to the
// host message bus.
func handleMessage(ep *Endpoint, _ uint32, content []byte) error {
	var msg MsgbusMessage
	if err := codec.Unmarshal(content, &msg); err != nil {
		return unparsable(CmdMessage, err)
	}
	if ep.MessageBus != nil {
		ep.MessageBus.Message(msg.MessageText, MessageLevel(msg.MessageLevel))
	}
	return nil
}

// handlePing replies with a PONG echoing the inbound seqno.
func handlePing(ep *Endpoint, seqno uint32, content []byte) error {
	var ping Ping
	if len(content) > 0 {
		if err := codec.Unmarshal(content, &ping); err != nil {
			return unparsable(CmdPing, err)
		}
	}
	ep.sendPong(seqno)
	return nil
}

// handlePong records that the helper is alive for liveness checking.
func handlePong(ep *Endpoint, _ uint32, content []byte) error {
	var pong Pong
	if err := codec.Unmarshal(content, &pong); err != nil {
		return unparsable(CmdPong, err)
	}
	ep.mu.Lock()
	ep.lastPong = time.Now()
	ep.mu.Unlock()
	return nil
}

// handleShutdown logs the remote-provided reason and tears the
// endpoint down. It does not call triggerError directly with a parse
// error — a SHUTDOWN whose reason fails to decode still shuts the
// endpoint down, with the placeholder reason "(unparsable reason)".
func handleShutdown(ep *Endpoint, _ uint32, content []byte) error {
	var shutdown ExternalShutdown
	if err := codec.Unmarshal(content, &shutdown); err != nil {
		shutdown.Reason = "(unparsable reason)"
	}
	if ep.MessageBus != nil {
		ep.MessageBus.Message("Kismet external interface shutting down: "+shutdown.Reason, MessageLevelInfo)
	}
	return fmt.Errorf("%w: %s", ErrRemoteShutdown, shutdown.Reason)
}

// handleHTTPRegisterURI registers a proxied route on the host's HTTP
// server, wiring it to the parked-handler session machine.
func handleHTTPRegisterURI(ep *Endpoint, _ uint32, content []byte) error {
	var reg HTTPRegisterURI
	if err := codec.Unmarshal(content, &reg); err != nil {
		return unparsable(CmdHTTPRegisterURI, err)
	}
	if ep.HTTPServer == nil {
		return nil
	}
	ep.HTTPServer.RegisterRoute(reg.URI, reg.Method, func(conn HTTPConnection) {
		ep.serveProxiedRequest(reg.URI, conn)
	})
	return nil
}

// serveProxiedRequest runs one proxied request end to end: allocate a
// session, forward the request to the helper, park on the gate, and
// clean up on wake. It runs on a host-server worker goroutine, not the
// read loop.
func (ep *Endpoint) serveProxiedRequest(uri string, conn HTTPConnection) {
	ep.mu.Lock()
	reqID := ep.nextReqID
	ep.nextReqID++
	gate := httpbridge.NewGate()
	ep.httpSessions[reqID] = &httpSession{connection: conn, gate: gate}
	ep.mu.Unlock()

	conn.SetClosureCallback(func() {
		gate.Release(httpbridge.ErrSessionFailed)
	})

	vars := make([]HTTPVariable, 0, len(conn.Variables()))
	for field, value := range conn.Variables() {
		vars = append(vars, HTTPVariable{Field: field, Content: value})
	}
	if _, err := ep.sendHTTPRequest(reqID, uri, conn.Verb(), vars); err != nil {
		gate.Release(err)
	}

	err := gate.Wait()

	ep.mu.Lock()
	delete(ep.httpSessions, reqID)
	ep.mu.Unlock()

	if err != nil {
		conn.SetStatus(502)
		conn.Complete()
	}
}

// handleHTTPResponse streams a response chunk (or the terminal chunk)
// back to the parked session identified by req_id.
func handleHTTPResponse(ep *Endpoint, _ uint32, content []byte) error {
	var resp HTTPResponse
	if err := codec.Unmarshal(content, &resp); err != nil {
		return unparsable(CmdHTTPResponse, err)
	}

	ep.mu.Lock()
	session, ok := ep.httpSessions[resp.ReqID]
	ep.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: req_id %d", ErrUnknownHTTPSession, resp.ReqID)
	}

	conn := session.connection
	for _, header := range resp.Headers {
		conn.AppendHeader(header.Header, header.Content)
	}
	if resp.HasStatus {
		conn.SetStatus(resp.Status)
	}
	if len(resp.Content) > 0 {
		if _, err := conn.Write(resp.Content); err != nil {
			session.gate.Release(err)
			return nil
		}
	}
	if resp.CloseResponse {
		conn.Complete()
		session.gate.Release(nil)
	}
	return nil
}

// handleHTTPAuthTokenRequest mints a logon-role auth token via the
// host's HTTP server and replies with HTTPAUTH.
func handleHTTPAuthTokenRequest(ep *Endpoint, _ uint32, content []byte) error {
	var req HTTPAuthTokenRequest
	if len(content) > 0 {
		if err := codec.Unmarshal(content, &req); err != nil {
			return unparsable(CmdHTTPAuthTokenRequest, err)
		}
	}
	token, err := ep.mintAuthToken()
	if err != nil {
		return fmt.Errorf("minting auth token: %w", err)
	}
	_, err = ep.sendHTTPAuth(token)
	return err
}

// handleEventbusRegister subscribes to each named event, replacing any
// prior listener on the same name, and forwards matching events to the
// helper as EVENT commands.
func handleEventbusRegister(ep *Endpoint, _ uint32, content []byte) error {
	var reg EventbusRegisterListener
	if err := codec.Unmarshal(content, &reg); err != nil {
		return unparsable(CmdEventbusRegister, err)
	}
	if ep.Events == nil {
		return nil
	}

	for _, name := range reg.EventNames {
		ep.mu.Lock()
		if oldID, ok := ep.eventbusListeners[name]; ok {
			ep.Events.Remove(oldID)
			delete(ep.eventbusListeners, name)
		}
		ep.mu.Unlock()

		eventName := name
		id := ep.Events.Register(eventName, func(evt Event) {
			ep.proxyEvent(eventName, evt)
		})

		ep.mu.Lock()
		ep.eventbusListeners[eventName] = id
		ep.mu.Unlock()
	}
	return nil
}

// eventbusEventJSONField is the well-known field a published event's
// JSON payload is attached under. The name is protocol-fixed: helpers
// on the other side of the link look it up verbatim.
const eventbusEventJSONField = "kismet.eventbus.event_json"

// handleEventbusPublish constructs a host event of the given type,
// attaches the helper-supplied JSON under the well-known field, and
// publishes it.
func handleEventbusPublish(ep *Endpoint, _ uint32, content []byte) error {
	var pub EventbusPublishEvent
	if err := codec.Unmarshal(content, &pub); err != nil {
		return unparsable(CmdEventbusPublish, err)
	}
	if ep.Events == nil {
		return nil
	}

	evt := ep.Events.NewEvent(pub.EventType)
	evt.SetField(eventbusEventJSONField, pub.EventJSON)
	ep.Events.Publish(evt)
	return nil
}

// proxyEvent forwards a host event that fired on a registered listener
// back to the helper as an EVENT command.
func (ep *Endpoint) proxyEvent(eventName string, evt Event) {
	payload, err := evt.JSON()
	if err != nil {
		ep.logger().Error("failed to serialize event for forwarding", "event", eventName, "error", err)
		return
	}
	ep.Send(CmdEventbusEvent, EventbusEvent{EventName: eventName, EventJSON: payload})
}

// Outbound originators, all funneling through Send.

func (ep *Endpoint) sendPing() (uint32, error) {
	return ep.Send(CmdPing, Ping{})
}

func (ep *Endpoint) sendPong(pingSeqno uint32) (uint32, error) {
	return ep.Send(CmdPong, Pong{PingSeqno: pingSeqno})
}

func (ep *Endpoint) sendShutdown(reason string) (uint32, error) {
	return ep.Send(CmdShutdown, ExternalShutdown{Reason: reason})
}

func (ep *Endpoint) sendHTTPRequest(reqID uint32, uri, method string, vars []HTTPVariable) (uint32, error) {
	return ep.Send(CmdHTTPRequest, HTTPRequest{ReqID: reqID, URI: uri, Method: method, VariableData: vars})
}

func (ep *Endpoint) sendHTTPAuth(token string) (uint32, error) {
	return ep.Send(CmdHTTPAuthToken, HTTPAuthToken{Token: token})
}

// RequestShutdown sends a SHUTDOWN command to the helper, asking it to
// exit cleanly before the endpoint is torn down locally.
func (ep *Endpoint) RequestShutdown(reason string) (uint32, error) {
	return ep.sendShutdown(reason)
}

// mintAuthToken produces a logon-role auth token via the host's HTTP
// server. The default HTTPServer implementations in hostkit mint a
// random opaque token; a production host may back this with its own
// session system.
func (ep *Endpoint) mintAuthToken() (string, error) {
	minter, ok := ep.HTTPServer.(interface{ MintAuthToken() (string, error) })
	if !ok {
		return "", fmt.Errorf("bridge: HTTPServer does not support auth token minting")
	}
	return minter.MintAuthToken()
}
