// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package eventlog provides the events processor which records every
// lifecycle event as a single structured log record.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/z5labs/lambdaext/event"
	"github.com/z5labs/lambdaext/event/eventslog"
	"github.com/z5labs/lambdaext/pkg/noop"
	"github.com/z5labs/lambdaext/pkg/otelslog"
)

type options struct {
	logHandler slog.Handler
}

// Option configures a Processor.
type Option func(*options)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// UnknownEventError is returned for an event.Event which is neither
// an event.Invoke nor an event.Shutdown.
type UnknownEventError struct {
	Event event.Event
}

// Error implements the [error] interface.
func (e UnknownEventError) Error() string {
	return fmt.Sprintf("unknown lifecycle event: %T", e.Event)
}

// Processor logs lifecycle events at info level.
type Processor struct {
	log *slog.Logger
}

// New returns a fully initialized Processor.
func New(opts ...Option) *Processor {
	o := &options{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Processor{
		log: otelslog.New(o.logHandler),
	}
}

// Process implements the queue.Processor interface.
func (p *Processor) Process(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.Shutdown:
		p.log.InfoContext(ctx, "shutting down", eventslog.Type(e.Type()), eventslog.Event(e))
	case event.Invoke:
		p.log.InfoContext(ctx, "invoking function", eventslog.Type(e.Type()), eventslog.Event(e))
	default:
		return UnknownEventError{Event: ev}
	}
	return nil
}
