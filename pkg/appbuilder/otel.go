// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"

	"github.com/z5labs/lambdaext"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TextMapPropagatorInitializer
type TextMapPropagatorInitializer interface {
	InitTextMapPropogator(context.Context) (propagation.TextMapPropagator, error)
}

// TracerProviderInitializer
type TracerProviderInitializer interface {
	InitTracerProvider(context.Context) (trace.TracerProvider, error)
}

// OTelInitializer is implemented by config types which know
// how to set up tracing for the extension.
type OTelInitializer interface {
	TextMapPropagatorInitializer
	TracerProviderInitializer
}

// OTel sets the global propagator and tracer provider from cfg before
// calling builder. A nil propagator or provider leaves the global untouched.
func OTel[T OTelInitializer](builder lambdaext.AppBuilder[T]) lambdaext.AppBuilder[T] {
	return lambdaext.AppBuilderFunc[T](func(ctx context.Context, cfg T) (lambdaext.App, error) {
		tmp, err := cfg.InitTextMapPropogator(ctx)
		if err != nil {
			return nil, err
		}
		if tmp != nil {
			otel.SetTextMapPropagator(tmp)
		}

		tp, err := cfg.InitTracerProvider(ctx)
		if err != nil {
			return nil, err
		}
		if tp != nil {
			otel.SetTracerProvider(tp)
		}

		return builder.Build(ctx, cfg)
	})
}
