// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"log/slog"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
)

// SlogMessageBus forwards MESSAGE traffic and bridge lifecycle notices
// to a structured logger.
type SlogMessageBus struct {
	// Logger receives the messages. If nil, slog.Default() is used.
	Logger *slog.Logger
}

func (b *SlogMessageBus) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Message implements bridge.MessageBus.
func (b *SlogMessageBus) Message(text string, level bridge.MessageLevel) {
	switch level {
	case bridge.MessageLevelDebug:
		b.logger().Debug(text)
	case bridge.MessageLevelError:
		b.logger().Error(text)
	case bridge.MessageLevelFatal:
		b.logger().Error(text, "fatal", true)
	default:
		b.logger().Info(text)
	}
}
