// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package extension runs a Lambda extension: it registers with the
// Extensions API and hands every lifecycle event, one at a time, to a
// queue.Processor until the execution environment shuts down.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/z5labs/lambdaext/event"
	"github.com/z5labs/lambdaext/event/eventslog"
	"github.com/z5labs/lambdaext/internal/httpclient"
	"github.com/z5labs/lambdaext/pkg/noop"
	"github.com/z5labs/lambdaext/pkg/otelslog"
	"github.com/z5labs/lambdaext/pkg/slogfield"
	"github.com/z5labs/lambdaext/queue"

	"go.opentelemetry.io/otel"
)

// RuntimeAPIEnv holds the host:port of the runtime API inside Lambda.
const RuntimeAPIEnv = "AWS_LAMBDA_RUNTIME_API"

const (
	initErrorType = "Extension.InitFailed"
	exitErrorType = "Extension.ProcessorFailed"
)

type options struct {
	name       string
	runtimeAPI string
	events     []event.Type
	processor  queue.Processor[event.Event]
	initHooks  []func(context.Context) error
	logHandler slog.Handler
	httpClient *http.Client
}

// Option configures an Extension.
type Option func(*options)

// Name is the name the extension registers under. It must match the
// file name of the extension binary in /opt/extensions.
// Default is the base name of os.Args[0].
func Name(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// RuntimeAPI overrides the AWS_LAMBDA_RUNTIME_API address.
func RuntimeAPI(addr string) Option {
	return func(o *options) {
		o.runtimeAPI = addr
	}
}

// Events selects which lifecycle events to subscribe to.
// Default is INVOKE and SHUTDOWN.
func Events(types ...event.Type) Option {
	return func(o *options) {
		o.events = types
	}
}

// EventsProcessor registers the callback which handles every event.
func EventsProcessor(p queue.Processor[event.Event]) Option {
	return func(o *options) {
		o.processor = p
	}
}

// OnInit registers a hook which runs after registration and before the
// first event is requested. A failing hook is reported as an init error.
func OnInit(f func(context.Context) error) Option {
	return func(o *options) {
		o.initHooks = append(o.initHooks, f)
	}
}

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// HTTPClient overrides the client used to call the Extensions API.
// It is used for every call, including /event/next.
func HTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// Extension drives the lifecycle event loop.
type Extension struct {
	log       *slog.Logger
	logh      slog.Handler
	client    *Client
	name      string
	events    []event.Type
	processor queue.Processor[event.Event]
	initHooks []func(context.Context) error
}

// New returns a fully initialized Extension.
func New(opts ...Option) *Extension {
	o := &options{
		runtimeAPI: os.Getenv(RuntimeAPIEnv),
		events:     []event.Type{event.TypeInvoke, event.TypeShutdown},
		logHandler: noop.LogHandler{},
	}
	if len(os.Args) > 0 {
		o.name = filepath.Base(os.Args[0])
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.processor == nil {
		o.processor = queue.ProcessorFunc[event.Event](func(context.Context, event.Event) error {
			return nil
		})
	}
	pollClient := o.httpClient
	if o.httpClient == nil {
		o.httpClient = httpclient.New(
			httpclient.Name("extensions-api"),
			httpclient.LogHandler(o.logHandler),
			httpclient.Retry(3, 100*time.Millisecond, time.Second),
			httpclient.TripAfter(5),
			httpclient.OpenStateTimeout(time.Second),
		)
		pollClient = httpclient.New(
			httpclient.Name("extensions-api-next"),
			httpclient.LogHandler(o.logHandler),
		)
	}

	var c *Client
	if o.runtimeAPI != "" {
		c = NewClient(o.runtimeAPI, o.httpClient, PollClient(pollClient))
	}

	return &Extension{
		log:       otelslog.New(o.logHandler),
		logh:      o.logHandler,
		client:    c,
		name:      o.name,
		events:    o.events,
		processor: o.processor,
		initHooks: o.initHooks,
	}
}

// ErrNoRuntimeAPI means neither RuntimeAPI nor AWS_LAMBDA_RUNTIME_API was set.
var ErrNoRuntimeAPI = errors.New("runtime api address is not set")

// RegisterError
type RegisterError struct {
	Cause error
}

// Error implements the [error] interface.
func (e RegisterError) Error() string {
	return fmt.Sprintf("failed to register extension: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e RegisterError) Unwrap() error {
	return e.Cause
}

// InitError
type InitError struct {
	Cause error
}

// Error implements the [error] interface.
func (e InitError) Error() string {
	return fmt.Sprintf("failed to initialize extension: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InitError) Unwrap() error {
	return e.Cause
}

// Run registers the extension and processes events until the Shutdown
// event has been processed, in which case it returns nil. A processor
// failure is reported to the Extensions API and returned.
func (ext *Extension) Run(ctx context.Context) error {
	if ext.client == nil {
		return RegisterError{Cause: ErrNoRuntimeAPI}
	}

	spanCtx, span := otel.Tracer("extension").Start(ctx, "Extension.register")
	reg, err := ext.client.Register(spanCtx, ext.name, ext.events...)
	span.End()
	if err != nil {
		ext.log.ErrorContext(ctx, "failed to register extension", slogfield.Error(err))
		return RegisterError{Cause: err}
	}
	ext.log.DebugContext(
		ctx,
		"registered extension",
		slogfield.String("extension_name", ext.name),
		slogfield.String("function_name", reg.FunctionName),
		slogfield.String("function_version", reg.FunctionVersion),
		eventslog.ExtensionID(reg.ExtensionID),
	)

	for _, hook := range ext.initHooks {
		err := hook(ctx)
		if err == nil {
			continue
		}
		ext.log.ErrorContext(ctx, "failed to initialize extension", slogfield.Error(err))
		rerr := ext.client.InitError(ctx, initErrorType, err)
		return errors.Join(InitError{Cause: err}, rerr)
	}

	rt := queue.Sequential[event.Event](
		&eventConsumer{next: ext.client.Next},
		ext.processor,
		queue.FailFast(),
		queue.LogHandler(ext.logh),
	)
	err = rt.Run(ctx)

	var perr queue.ProcessError
	if !errors.As(err, &perr) {
		return err
	}
	rerr := ext.client.ExitError(ctx, exitErrorType, perr.Cause)
	return errors.Join(err, rerr)
}

// eventConsumer stops handing out events once it has handed out
// a Shutdown, so the Shutdown is always the last unit of work.
type eventConsumer struct {
	next func(context.Context) (event.Event, error)
	done bool
}

func (c *eventConsumer) Consume(ctx context.Context) (event.Event, error) {
	if c.done {
		return nil, queue.ErrEndOfItems
	}

	ev, err := c.next(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := ev.(event.Shutdown); ok {
		c.done = true
	}
	return ev, nil
}
