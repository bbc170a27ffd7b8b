// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"log/slog"
	"os"

	"github.com/z5labs/lambdaext"
	"github.com/z5labs/lambdaext/config"
	"github.com/z5labs/lambdaext/pkg/appbuilder"
	"github.com/z5labs/lambdaext/pkg/slogfield"

	"github.com/spf13/cobra"
)

//go:embed config.yaml
var configBytes []byte

func buildCmd(stderr io.Writer, newSQS sqsClientFunc) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "logging_extension",
		Short:         "Lambda extension which logs every lifecycle event it receives",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs := []config.Source{
				config.FromYaml(config.RenderTextTemplate(bytes.NewReader(configBytes))),
			}
			if cfgFile != "" {
				f, err := os.Open(cfgFile)
				if err != nil {
					return err
				}
				srcs = append(srcs, config.FromYaml(config.RenderTextTemplate(f)))
			}

			builder := appbuilder.Recover(
				appbuilder.OTel[Config](buildExtension(stderr, newSQS)),
			)
			return lambdaext.Run(cmd.Context(), builder, srcs...)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "YAML config file merged over the embedded defaults")
	return cmd
}

func main() {
	cmd := buildCmd(os.Stderr, loadSQSClient)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		log := slog.New(logHandler(os.Stderr, slog.LevelInfo))
		log.Error("extension exited with an error", slogfield.Error(err))
		os.Exit(1)
	}
}
