// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package queue provides a consumer/processor loop which implements the lambdaext.App interface.
package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/z5labs/lambdaext/internal/try"
	"github.com/z5labs/lambdaext/pkg/noop"
	"github.com/z5labs/lambdaext/pkg/otelslog"
	"github.com/z5labs/lambdaext/pkg/slogfield"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// ErrEndOfItems is returned by a Consumer when it will never produce another item.
var ErrEndOfItems = errors.New("queue: end of items")

// Consumer produces the next item to process. Consume may block.
type Consumer[T any] interface {
	Consume(context.Context) (T, error)
}

// ConsumerFunc is a functional implementation of the Consumer interface.
type ConsumerFunc[T any] func(context.Context) (T, error)

// Consume implements the Consumer interface.
func (f ConsumerFunc[T]) Consume(ctx context.Context) (T, error) {
	return f(ctx)
}

// Processor handles a single item.
type Processor[T any] interface {
	Process(context.Context, T) error
}

// ProcessorFunc is a functional implementation of the Processor interface.
type ProcessorFunc[T any] func(context.Context, T) error

// Process implements the Processor interface.
func (f ProcessorFunc[T]) Process(ctx context.Context, t T) error {
	return f(ctx, t)
}

// Processors calls each Processor in order, stopping at the first error.
func Processors[T any](ps ...Processor[T]) Processor[T] {
	if len(ps) == 1 {
		return ps[0]
	}
	return ProcessorFunc[T](func(ctx context.Context, t T) error {
		for _, p := range ps {
			err := p.Process(ctx, t)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type options struct {
	logHandler slog.Handler
	failFast   bool
}

// Option configures a SequentialRuntime.
type Option func(*options)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// FailFast makes Run return the first consume or process error
// instead of logging it and moving on to the next item.
func FailFast() Option {
	return func(o *options) {
		o.failFast = true
	}
}

// ConsumeError wraps a failure returned, or panicked, by a Consumer.
type ConsumeError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ConsumeError) Error() string {
	return "failed to consume: " + e.Cause.Error()
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConsumeError) Unwrap() error {
	return e.Cause
}

// ProcessError wraps a failure returned, or panicked, by a Processor.
type ProcessError struct {
	Cause error
}

// Error implements the [error] interface.
func (e ProcessError) Error() string {
	return "failed to process: " + e.Cause.Error()
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ProcessError) Unwrap() error {
	return e.Cause
}

// SequentialRuntime consumes and processes items one at a time.
// An item is fully processed before the next one is consumed.
type SequentialRuntime[T any] struct {
	log      *slog.Logger
	c        Consumer[T]
	p        Processor[T]
	failFast bool
}

// Sequential
func Sequential[T any](c Consumer[T], p Processor[T], opts ...Option) *SequentialRuntime[T] {
	o := &options{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}

	return &SequentialRuntime[T]{
		log:      otelslog.New(o.logHandler),
		c:        c,
		p:        p,
		failFast: o.failFast,
	}
}

// Run implements the lambdaext.App interface. It returns nil once the
// context is cancelled or the Consumer returns ErrEndOfItems. Cancellation
// is only observed between items: an item already consumed is processed.
func (rt *SequentialRuntime[T]) Run(ctx context.Context) error {
	tracer := otel.Tracer("queue")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		spanCtx, span := tracer.Start(ctx, "SequentialRuntime.Run")
		done, err := rt.next(spanCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if done {
			return err
		}
	}
}

func (rt *SequentialRuntime[T]) next(ctx context.Context) (done bool, err error) {
	item, err := consume(ctx, rt.c)
	if errors.Is(err, ErrEndOfItems) {
		rt.log.DebugContext(ctx, "consumer has no more items")
		return true, nil
	}
	if err != nil && ctx.Err() != nil {
		return true, nil
	}
	if err != nil {
		rt.log.ErrorContext(ctx, "failed to consume", slogfield.Error(err))
		return rt.failFast, ConsumeError{Cause: err}
	}

	// a consumed item is always processed, even if ctx was cancelled
	// while waiting on the consumer
	err = process(context.WithoutCancel(ctx), rt.p, item)
	if err != nil {
		rt.log.ErrorContext(ctx, "failed to process", slogfield.Error(err))
		return rt.failFast, ProcessError{Cause: err}
	}
	return false, nil
}

func consume[T any](ctx context.Context, c Consumer[T]) (_ T, err error) {
	spanCtx, span := otel.Tracer("queue").Start(ctx, "consume")
	defer span.End()
	defer try.Recover(&err)

	return c.Consume(spanCtx)
}

func process[T any](ctx context.Context, p Processor[T], value T) (err error) {
	spanCtx, span := otel.Tracer("queue").Start(ctx, "process")
	defer span.End()
	defer try.Recover(&err)

	return p.Process(spanCtx, value)
}
