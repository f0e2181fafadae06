// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "time"

// MessageLevel classifies a MESSAGE command for the host's message bus,
// mirroring the helper's own notion of log severity.
type MessageLevel int

const (
	MessageLevelInfo MessageLevel = iota
	MessageLevelError
	MessageLevelDebug
	MessageLevelFatal
)

// ConfigStore supplies the search paths used to resolve a helper binary
// and the host's path-expansion function. A host may back this with a
// YAML file (see hostkit.YAMLConfigStore), a database, or anything
// else; the endpoint only ever reads from it.
type ConfigStore interface {
	// HelperBinaryPaths returns the configured helper_binary_path
	// entries, in order. An empty slice means the host has not
	// configured any and the endpoint should fall back to the single
	// "%B" token.
	HelperBinaryPaths() []string

	// ExpandLogPath expands host-specific tokens in path, notably "%B"
	// (the installation bin directory). Paths with no tokens are
	// returned unchanged.
	ExpandLogPath(path string) string
}

// MessageBus is the host's logging sink for MESSAGE commands and for
// the endpoint's own lifecycle notices (e.g. the SHUTDOWN scenario's
// "external interface shutting down" notice).
type MessageBus interface {
	Message(text string, level MessageLevel)
}

// TimerHandle identifies a scheduled callback so it can later be
// cancelled.
type TimerHandle int

// TimerService schedules periodic callbacks, used for the optional
// liveness ping timer. fn is invoked every interval until it returns
// false (self-cancelling) or Cancel is called with the returned handle.
type TimerService interface {
	Schedule(interval time.Duration, fn func() bool) TimerHandle
	Cancel(handle TimerHandle)
}

// Event is an opaque host event constructed via EventBus.NewEvent and
// populated before Publish.
type Event interface {
	// SetField attaches a value under a named field, used to carry the
	// well-known "kismet.eventbus.event_json" payload field (see
	// EVENTBUSPUBLISH in commands.go).
	SetField(name string, value any)

	// JSON renders the event's fields as a JSON object, used to forward
	// a host event that fired on a registered listener back to the
	// helper as an EVENT command's payload.
	JSON() (string, error)
}

// ListenerID identifies an event-bus registration so it can later be
// removed.
type ListenerID int

// EventBus is the host's publish/subscribe mechanism. EVENTBUSREGISTER
// registers a listener that forwards matching events to the helper;
// EVENTBUSPUBLISH constructs and publishes a host event carrying a
// helper-supplied JSON payload.
type EventBus interface {
	Register(name string, fn func(Event)) ListenerID
	Remove(id ListenerID)
	NewEvent(eventType string) Event
	Publish(evt Event)
}

// HTTPConnection is a single in-flight request on the host's HTTP
// server, as handed to a route handler registered via
// HTTPServer.RegisterRoute.
type HTTPConnection interface {
	URI() string
	Verb() string
	Variables() map[string]string

	AppendHeader(name, value string)
	SetStatus(code int)
	Write(p []byte) (int, error)
	Complete()

	// SetClosureCallback installs fn to be called if the underlying
	// client connection closes before Complete is called, so the
	// parked session gate can be released with a failure sentinel.
	SetClosureCallback(fn func())
}

// HTTPServer is the host's web server, exposing just enough to let the
// bridge register routes that proxy into the helper.
type HTTPServer interface {
	// RegisterRoute binds handler to every request matching uri and
	// method. Logon-role authorization is host-side policy applied
	// before handler runs; this interface does not model it since the
	// core never inspects it.
	RegisterRoute(uri, method string, handler func(HTTPConnection))
}
