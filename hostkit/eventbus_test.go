// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"strings"
	"testing"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
)

func TestMemoryEventBusPublish(t *testing.T) {
	bus := NewMemoryEventBus()

	var received []bridge.Event
	bus.Register("ALERT", func(evt bridge.Event) { received = append(received, evt) })
	bus.Register("OTHER", func(bridge.Event) { t.Error("OTHER listener fired for ALERT event") })

	evt := bus.NewEvent("ALERT")
	evt.SetField("severity", "high")
	bus.Publish(evt)

	if len(received) != 1 {
		t.Fatalf("received = %d events, want 1", len(received))
	}
	payload, err := received[0].JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(payload, "high") {
		t.Fatalf("payload %q missing field value", payload)
	}
}

func TestMemoryEventBusWildcard(t *testing.T) {
	bus := NewMemoryEventBus()

	count := 0
	bus.Register(WildcardEvent, func(bridge.Event) { count++ })

	bus.Publish(bus.NewEvent("A"))
	bus.Publish(bus.NewEvent("B"))

	if count != 2 {
		t.Fatalf("wildcard listener fired %d times, want 2", count)
	}
}

func TestMemoryEventBusRemove(t *testing.T) {
	bus := NewMemoryEventBus()

	id := bus.Register("ALERT", func(bridge.Event) { t.Error("removed listener fired") })
	bus.Remove(id)

	bus.Publish(bus.NewEvent("ALERT"))
	if got := bus.ListenerCount(); got != 0 {
		t.Fatalf("ListenerCount = %d, want 0", got)
	}

	// Removing twice is harmless.
	bus.Remove(id)
}
