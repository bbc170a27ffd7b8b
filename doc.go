// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lambdaext runs AWS Lambda extensions built from layered config.
//
// An extension is described by three pieces:
//
//   - a config type T, decoded from one or more config.Source values
//   - an AppBuilder[T], which turns T into a runnable App
//   - the App itself, usually an *extension.Extension
//
// # Basic Usage
//
//	builder := lambdaext.AppBuilderFunc[Config](func(ctx context.Context, cfg Config) (lambdaext.App, error) {
//	    ext := extension.New(
//	        extension.RuntimeAPI(cfg.RuntimeAPI),
//	        extension.EventsProcessor(eventlog.New()),
//	    )
//	    return ext, nil
//	})
//
//	err := lambdaext.Run(ctx, builder, config.FromYaml(f))
//	if err != nil {
//	    os.Exit(1)
//	}
package lambdaext
