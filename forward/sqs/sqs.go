// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sqs forwards lifecycle events to an AWS SQS queue.
package sqs

import (
	"context"
	"log/slog"

	"github.com/z5labs/lambdaext/event"
	"github.com/z5labs/lambdaext/event/eventslog"
	"github.com/z5labs/lambdaext/pkg/noop"
	"github.com/z5labs/lambdaext/pkg/otelslog"
	"github.com/z5labs/lambdaext/pkg/slogfield"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type sqsSendClient interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type options struct {
	logHandler slog.Handler
	sqs        sqsSendClient
	queueUrl   string
}

// Option configures a Forwarder.
type Option func(*options)

// LogHandler configures the underlying slog.Handler.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// Client configures the underlying SQS client.
func Client(c *sqs.Client) Option {
	return func(o *options) {
		o.sqs = c
	}
}

// QueueUrl configures the SQS queue url.
func QueueUrl(url string) Option {
	return func(o *options) {
		o.queueUrl = url
	}
}

// Forwarder sends every event it processes to an SQS queue. Forwarding is
// best effort: failures are logged and never stop the extension.
type Forwarder struct {
	log *slog.Logger
	sqs sqsSendClient

	queueUrl string
}

// NewForwarder
func NewForwarder(opts ...Option) *Forwarder {
	o := &options{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Forwarder{
		log:      otelslog.New(o.logHandler),
		sqs:      o.sqs,
		queueUrl: o.queueUrl,
	}
}

// Process implements the queue.Processor interface.
func (f *Forwarder) Process(ctx context.Context, ev event.Event) error {
	spanCtx, span := otel.Tracer("sqs").Start(ctx, "Forwarder.Process", trace.WithAttributes(
		attribute.String("event_type", ev.Type().Name()),
	))
	defer span.End()

	body, err := event.Encode(ev)
	if err != nil {
		f.log.ErrorContext(spanCtx, "failed to encode event", slogfield.Error(err))
		return nil
	}

	attrs := map[string]types.MessageAttributeValue{
		"event_type": {
			DataType:    aws.String("String"),
			StringValue: aws.String(ev.Type().Name()),
		},
	}
	if invoke, ok := ev.(event.Invoke); ok && invoke.RequestID != "" {
		attrs["request_id"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(invoke.RequestID),
		}
	}

	resp, err := f.sqs.SendMessage(spanCtx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(f.queueUrl),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		logAttrs := []any{slogfield.Error(err)}
		if invoke, ok := ev.(event.Invoke); ok {
			logAttrs = append(logAttrs, eventslog.RequestID(invoke.RequestID))
		}
		f.log.ErrorContext(spanCtx, "failed to forward event", logAttrs...)
		return nil
	}

	f.log.DebugContext(spanCtx, "forwarded event", slogfield.String("sqs_message_id", aws.ToString(resp.MessageId)))
	return nil
}
