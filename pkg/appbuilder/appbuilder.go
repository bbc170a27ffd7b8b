// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides wrappers for a [lambdaext.AppBuilder].
package appbuilder

import (
	"context"

	"github.com/z5labs/lambdaext"
	"github.com/z5labs/lambdaext/internal/try"
)

// Recover will wrap the given [lambdaext.AppBuilder] with panic recovery.
// A recovered panic is returned as a [try.PanicError].
func Recover[T any](builder lambdaext.AppBuilder[T]) lambdaext.AppBuilder[T] {
	return lambdaext.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ lambdaext.App, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}
