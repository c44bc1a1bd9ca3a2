// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Command mirror-publish uploads a locally mirrored repository tree to a
// remote HTTP repository or S3 bucket.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/services/publish"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	fs := pflag.NewFlagSet(utils.AppName, pflag.ContinueOnError)
	env := fs.String("env", "", "INI environment section to use")
	format := fs.String("format", "short", "report format: short, json or yaml")
	persist := fs.Bool("persist", false, "save the effective configuration into the INI section")
	fs.String("root-url", "", "target repository root URL (http, https or s3)")
	fs.String("mirror-path", "", "local mirror directory (default ./mirror/)")
	fs.Int("threads", 0, "number of concurrent uploads (default 10)")
	fs.String("user", "", "username for Basic authentication")
	fs.String("password", "", "password for Basic authentication")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := utils.RegisterIniCfgWithViper(*env); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	if err := utils.BindFlagsFromStruct(fs); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger := utils.InitLogger(utils.AppName, viper.GetString(utils.LogLevel))
	logger.Debug().Interface("settings", utils.RedactedSettings()).Msg("Effective configuration")

	if *persist {
		if err := utils.PersistCurrentEnvironment(); err != nil {
			logger.Error().Err(err).Msg("Failed to persist configuration")
			return 1
		}
	}

	conf, err := utils.BuildConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	svc, err := publish.NewPublishService(ctx, conf, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize publisher")
		return 1
	}

	report, err := svc.Publish(ctx, publish.PublishRequest{})
	if report != nil {
		if perr := utils.PrintOutput(stdout, report, *format, report.Short); perr != nil {
			logger.Error().Err(perr).Msg("Failed to print report")
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("Publish failed")
		return 1
	}
	return 0
}
