// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides wrappers which add process level behaviour to a [lambdaext.App].
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/lambdaext"
	"github.com/z5labs/lambdaext/internal/try"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// Recover will wrap the given [lambdaext.App] with panic recovery.
// A recovered panic is returned as a [try.PanicError]. If the
// panic value implements [error] it can be matched with [errors.Is].
func Recover(app lambdaext.App) lambdaext.App {
	return lambdaext.AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [lambdaext.App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app lambdaext.App, signals ...os.Signal) lambdaext.App {
	return lambdaext.AppFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// LifecycleHook represents functionality that needs to be performed
// at a specific "time" relative to the execution of [lambdaext.App.Run].
type LifecycleHook interface {
	Run(context.Context) error
}

// LifecycleHookFunc is a convenient helper type for implementing a [LifecycleHook]
// from just a regular func.
type LifecycleHookFunc func(context.Context) error

// Run implements the [LifecycleHook] interface.
func (f LifecycleHookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Concurrently returns a [LifecycleHook] which runs every hook at the
// same time and joins their errors.
func Concurrently(hooks ...LifecycleHook) LifecycleHook {
	return LifecycleHookFunc(func(ctx context.Context) error {
		var g errgroup.Group
		errs := make([]error, len(hooks))
		for i, hook := range hooks {
			g.Go(func() error {
				errs[i] = hook.Run(ctx)
				return nil
			})
		}
		g.Wait()
		return errors.Join(errs...)
	})
}

// ShutdownTracerProvider flushes and stops the global trace.TracerProvider,
// if it supports being shut down.
func ShutdownTracerProvider() LifecycleHook {
	return LifecycleHookFunc(func(ctx context.Context) error {
		tp, ok := otel.GetTracerProvider().(interface {
			Shutdown(context.Context) error
		})
		if !ok {
			return nil
		}
		return tp.Shutdown(ctx)
	})
}

// Lifecycle
type Lifecycle struct {
	// PreRun is executed before the underlying [lambdaext.App]. If it
	// fails the app is never run.
	PreRun LifecycleHook

	// PostRun is always executed regardless if the underlying [lambdaext.App]
	// returns an error or panics. Its error is joined with the app's.
	PostRun LifecycleHook
}

// WithLifecycleHooks wraps a given [lambdaext.App] in an implementation
// that runs [LifecycleHook]s around the execution of app.Run.
func WithLifecycleHooks(app lambdaext.App, lifecycle Lifecycle) lambdaext.App {
	return lambdaext.AppFunc(func(ctx context.Context) (err error) {
		if lifecycle.PreRun != nil {
			err = lifecycle.PreRun.Run(ctx)
			if err != nil {
				return err
			}
		}

		defer runPostRunHook(context.WithoutCancel(ctx), lifecycle.PostRun, &err)
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook LifecycleHook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(ctx)

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)
}
