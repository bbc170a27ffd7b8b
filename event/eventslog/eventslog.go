// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package eventslog provides slog attributes for lifecycle events.
package eventslog

import (
	"log/slog"

	"github.com/z5labs/lambdaext/event"
)

// Type renders the lower case event kind under "event_type".
func Type(t event.Type) slog.Attr {
	return slog.String("event_type", t.Name())
}

// Event renders the debug form of ev under "event".
func Event(ev event.Event) slog.Attr {
	return slog.String("event", ev.String())
}

// RequestID
func RequestID(id string) slog.Attr {
	return slog.String("lambda_request_id", id)
}

// ExtensionID
func ExtensionID(id string) slog.Attr {
	return slog.String("lambda_extension_id", id)
}
