// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sqs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/z5labs/lambdaext/event"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSqsClient(c sqsSendClient) Option {
	return func(o *options) {
		o.sqs = c
	}
}

type sqsSendClientFunc func(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)

func (f sqsSendClientFunc) SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return f(ctx, in, opts...)
}

func TestForwarder_Process(t *testing.T) {
	t.Run("will send the encoded event", func(t *testing.T) {
		t.Run("if the event is an Invoke", func(t *testing.T) {
			var sent *sqs.SendMessageInput
			client := sqsSendClientFunc(func(ctx context.Context, in *sqs.SendMessageInput, f ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				sent = in
				return &sqs.SendMessageOutput{MessageId: aws.String("1234")}, nil
			})

			f := NewForwarder(
				LogHandler(slog.Default().Handler()),
				QueueUrl("example"),
				withSqsClient(client),
			)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			ev := event.Invoke{DeadlineMs: 1, RequestID: "abc123"}
			err := f.Process(ctx, ev)
			if !assert.Nil(t, err) {
				return
			}
			require.NotNil(t, sent)
			if !assert.Equal(t, "example", aws.ToString(sent.QueueUrl)) {
				return
			}
			if !assert.Equal(t, "invoke", aws.ToString(sent.MessageAttributes["event_type"].StringValue)) {
				return
			}
			if !assert.Equal(t, "abc123", aws.ToString(sent.MessageAttributes["request_id"].StringValue)) {
				return
			}

			decoded, err := event.Decode([]byte(aws.ToString(sent.MessageBody)))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, ev, decoded) {
				return
			}
		})

		t.Run("if the event is a Shutdown", func(t *testing.T) {
			var sent *sqs.SendMessageInput
			client := sqsSendClientFunc(func(ctx context.Context, in *sqs.SendMessageInput, f ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				sent = in
				return &sqs.SendMessageOutput{}, nil
			})

			f := NewForwarder(QueueUrl("example"), withSqsClient(client))

			err := f.Process(context.Background(), event.Shutdown{ShutdownReason: event.Failure})
			if !assert.Nil(t, err) {
				return
			}
			require.NotNil(t, sent)
			if !assert.Equal(t, "shutdown", aws.ToString(sent.MessageAttributes["event_type"].StringValue)) {
				return
			}
			if !assert.NotContains(t, sent.MessageAttributes, "request_id") {
				return
			}
		})
	})

	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if sqs fails to send the message", func(t *testing.T) {
			client := sqsSendClientFunc(func(ctx context.Context, in *sqs.SendMessageInput, f ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
				return nil, errors.New("failed to send")
			})

			f := NewForwarder(QueueUrl("example"), withSqsClient(client))

			err := f.Process(context.Background(), event.Invoke{RequestID: "abc123"})
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}
