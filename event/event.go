// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package event models the lifecycle events delivered to a Lambda extension.
//
// An [Event] is always exactly one of [Invoke] or [Shutdown]. The interface
// is sealed so a type switch over those two variants is exhaustive.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type is the wire name of an event, as sent by the Extensions API.
type Type string

const (
	TypeInvoke   Type = "INVOKE"
	TypeShutdown Type = "SHUTDOWN"
)

// Name returns the lower case form of t used in log records.
func (t Type) Name() string {
	return strings.ToLower(string(t))
}

// Event is a single lifecycle notification.
type Event interface {
	Type() Type

	// String renders only this event's data for debugging.
	String() string

	isEvent()
}

// Tracing holds the X-Ray tracing header for an invocation.
type Tracing struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Invoke notifies the extension that the function is being invoked.
type Invoke struct {
	DeadlineMs         int64
	RequestID          string
	InvokedFunctionArn string
	Tracing            Tracing
}

func (Invoke) isEvent() {}

// Type implements the [Event] interface.
func (Invoke) Type() Type { return TypeInvoke }

// Deadline is the point in time the invocation times out.
func (e Invoke) Deadline() time.Time {
	return time.UnixMilli(e.DeadlineMs)
}

// String implements the [Event] interface.
func (e Invoke) String() string {
	type fields Invoke
	return fmt.Sprintf("Invoke%+v", fields(e))
}

// ShutdownReason explains why the execution environment is shutting down.
type ShutdownReason string

const (
	Spindown ShutdownReason = "spindown"
	Timeout  ShutdownReason = "timeout"
	Failure  ShutdownReason = "failure"
)

// Shutdown notifies the extension that the execution environment is
// about to terminate. It is the last event an extension receives.
type Shutdown struct {
	DeadlineMs     int64
	ShutdownReason ShutdownReason
}

func (Shutdown) isEvent() {}

// Type implements the [Event] interface.
func (Shutdown) Type() Type { return TypeShutdown }

// Deadline is the point in time by which the extension must exit.
func (e Shutdown) Deadline() time.Time {
	return time.UnixMilli(e.DeadlineMs)
}

// String implements the [Event] interface.
func (e Shutdown) String() string {
	type fields Shutdown
	return fmt.Sprintf("Shutdown%+v", fields(e))
}

// wire is the JSON shape of the /event/next response body.
type wire struct {
	EventType          Type           `json:"eventType"`
	DeadlineMs         int64          `json:"deadlineMs"`
	RequestID          string         `json:"requestId,omitempty"`
	InvokedFunctionArn string         `json:"invokedFunctionArn,omitempty"`
	Tracing            *Tracing       `json:"tracing,omitempty"`
	ShutdownReason     ShutdownReason `json:"shutdownReason,omitempty"`
}

// InvalidJSONError is returned by [Decode] for malformed payloads.
type InvalidJSONError struct {
	Cause error
}

// Error implements the [error] interface.
func (e InvalidJSONError) Error() string {
	return fmt.Sprintf("invalid event json: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidJSONError) Unwrap() error {
	return e.Cause
}

// UnknownTypeError is returned by [Decode] when the eventType is
// neither INVOKE nor SHUTDOWN.
type UnknownTypeError struct {
	Type Type
}

// Error implements the [error] interface.
func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown event type: %q", string(e.Type))
}

// Decode parses an Extensions API event payload.
func Decode(b []byte) (Event, error) {
	var w wire
	err := json.Unmarshal(b, &w)
	if err != nil {
		return nil, InvalidJSONError{Cause: err}
	}

	switch w.EventType {
	case TypeInvoke:
		ev := Invoke{
			DeadlineMs:         w.DeadlineMs,
			RequestID:          w.RequestID,
			InvokedFunctionArn: w.InvokedFunctionArn,
		}
		if w.Tracing != nil {
			ev.Tracing = *w.Tracing
		}
		return ev, nil
	case TypeShutdown:
		return Shutdown{
			DeadlineMs:     w.DeadlineMs,
			ShutdownReason: w.ShutdownReason,
		}, nil
	default:
		return nil, UnknownTypeError{Type: w.EventType}
	}
}

// Encode is the inverse of [Decode].
func Encode(ev Event) ([]byte, error) {
	var w wire
	switch x := ev.(type) {
	case Invoke:
		w = wire{
			EventType:          TypeInvoke,
			DeadlineMs:         x.DeadlineMs,
			RequestID:          x.RequestID,
			InvokedFunctionArn: x.InvokedFunctionArn,
		}
		if x.Tracing != (Tracing{}) {
			t := x.Tracing
			w.Tracing = &t
		}
	case Shutdown:
		w = wire{
			EventType:      TypeShutdown,
			DeadlineMs:     x.DeadlineMs,
			ShutdownReason: x.ShutdownReason,
		}
	default:
		// only a nil Event can reach here
		return nil, UnknownTypeError{}
	}
	return json.Marshal(w)
}
