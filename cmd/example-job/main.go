//
// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/config"
	"github.com/apache/spark/go/sparkjob/internal/job"
	"github.com/apache/spark/go/sparkjob/internal/logging"
	"github.com/apache/spark/go/sparkjob/internal/telemetry"
)

func main() {
	app := buildApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = job.Name
	app.Usage = "run the example Spark job"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "remote",
			Usage:  "Spark Connect remote: local, local[N] or sc://host:port",
			EnvVar: "SPARK_REMOTE",
		},
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path of the YAML job file",
			EnvVar: "JOB_CONFIG",
		},
		cli.StringFlag{
			Name:   "level",
			Value:  "info",
			Usage:  "lowest visible log level: debug|info|warn|error",
			EnvVar: "LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-format",
			Value:  "json",
			Usage:  "log encoding: json|console",
			EnvVar: "LOG_FORMAT",
		},
	}
	app.Action = run
	return app
}

func run(c *cli.Context) error {
	logger, err := logging.New(c.String("level"), c.String("log-format"))
	if err != nil {
		return errors.Wrap(err, "setting up logging")
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		logger.Error("invalid job configuration", zap.Error(err))
		return cli.NewExitError("", 1)
	}
	if remote := c.String("remote"); remote != "" {
		cfg.Remote = remote
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracing(ctx, cfg.AppName, logger)
	if err != nil {
		logger.Error("failed to set up tracing", zap.Error(err))
		return cli.NewExitError("", 1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	if err := job.Run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("job failed", zap.Error(err))
		return cli.NewExitError("", 1)
	}
	logger.Info("job finished")
	return nil
}
