// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog ties log records to the span that was active when
// they were written.
package otelslog

import (
	"context"
	"log/slog"

	"github.com/z5labs/lambdaext/pkg/slogfield"

	"go.opentelemetry.io/otel/trace"
)

// Handler forwards records to another slog.Handler. Records written
// with a context carrying a valid span get an extra "otel" group
// with "trace_id" and "span_id".
type Handler struct {
	next slog.Handler
}

// NewHandler wraps h, unless h is already a *Handler.
func NewHandler(h slog.Handler) *Handler {
	if oh, ok := h.(*Handler); ok {
		return oh
	}
	return &Handler{next: h}
}

func New(h slog.Handler) *slog.Logger {
	return slog.New(NewHandler(h))
}

func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record = record.Clone()
		record.AddAttrs(spanGroup(sc))
	}
	return h.next.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

func spanGroup(sc trace.SpanContext) slog.Attr {
	return slog.Group(
		"otel",
		slogfield.String("trace_id", sc.TraceID().String()),
		slogfield.String("span_id", sc.SpanID().String()),
	)
}
