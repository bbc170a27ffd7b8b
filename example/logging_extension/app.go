// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/z5labs/lambdaext"
	"github.com/z5labs/lambdaext/event"
	"github.com/z5labs/lambdaext/eventlog"
	"github.com/z5labs/lambdaext/extension"
	"github.com/z5labs/lambdaext/forward/sqs"
	"github.com/z5labs/lambdaext/pkg/app"
	"github.com/z5labs/lambdaext/pkg/otelconfig"
	"github.com/z5labs/lambdaext/pkg/otelslog"
	"github.com/z5labs/lambdaext/queue"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Config
type Config struct {
	Logging struct {
		Level slog.Level `config:"level"`
	} `config:"logging"`

	Extension struct {
		Name       string `config:"name"`
		RuntimeAPI string `config:"runtime_api"`
	} `config:"extension"`

	OTel otelconfig.Config `config:"otel"`

	Forward struct {
		SQS struct {
			QueueURL string `config:"queue_url"`
		} `config:"sqs"`
	} `config:"forward"`
}

// InitTextMapPropogator implements the appbuilder.TextMapPropagatorInitializer interface.
func (Config) InitTextMapPropogator(ctx context.Context) (propagation.TextMapPropagator, error) {
	tmp := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	return tmp, nil
}

// InitTracerProvider implements the appbuilder.TracerProviderInitializer interface.
func (cfg Config) InitTracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	initer, err := cfg.OTel.Initializer()
	if err != nil {
		return nil, err
	}
	return initer.Init(ctx)
}

// logHandler writes JSON records to w without a time attribute,
// since the Lambda log pipeline timestamps every line itself.
func logHandler(w io.Writer, level slog.Level) slog.Handler {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return otelslog.NewHandler(h)
}

type sqsClientFunc func(context.Context) (*awssqs.Client, error)

func loadSQSClient(ctx context.Context) (*awssqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return awssqs.NewFromConfig(awsCfg), nil
}

func buildProcessor(ctx context.Context, cfg Config, h slog.Handler, newSQS sqsClientFunc) (queue.Processor[event.Event], error) {
	logEvents := eventlog.New(eventlog.LogHandler(h))
	if cfg.Forward.SQS.QueueURL == "" {
		return logEvents, nil
	}

	client, err := newSQS(ctx)
	if err != nil {
		return nil, err
	}

	fwd := sqs.NewForwarder(
		sqs.LogHandler(h),
		sqs.Client(client),
		sqs.QueueUrl(cfg.Forward.SQS.QueueURL),
	)
	return queue.Processors[event.Event](logEvents, fwd), nil
}

func buildExtension(w io.Writer, newSQS sqsClientFunc) lambdaext.AppBuilderFunc[Config] {
	return func(ctx context.Context, cfg Config) (lambdaext.App, error) {
		h := logHandler(w, cfg.Logging.Level)

		processor, err := buildProcessor(ctx, cfg, h, newSQS)
		if err != nil {
			return nil, err
		}

		opts := []extension.Option{
			extension.LogHandler(h),
			extension.EventsProcessor(processor),
		}
		if cfg.Extension.Name != "" {
			opts = append(opts, extension.Name(cfg.Extension.Name))
		}
		if cfg.Extension.RuntimeAPI != "" {
			opts = append(opts, extension.RuntimeAPI(cfg.Extension.RuntimeAPI))
		}

		var ext lambdaext.App = extension.New(opts...)
		ext = app.WithLifecycleHooks(ext, app.Lifecycle{
			PostRun: app.Concurrently(
				app.ShutdownTracerProvider(),
			),
		})
		ext = app.WithSignalNotifications(ext, os.Interrupt, syscall.SIGTERM)
		return app.Recover(ext), nil
	}
}
