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

// Package job runs the example Spark job: it creates a session, runs the
// optional Kafka and JDBC reads, shows the example table, runs the optional
// Cassandra write and stops the session.
package job

import (
	"context"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/config"
	"github.com/apache/spark/go/sparkjob/internal/telemetry"
	"github.com/apache/spark/go/sparkjob/pkg/spark/sql"
)

// Name is the job name metrics are pushed under.
const Name = "example-job"

const cassandraFormat = "org.apache.spark.sql.cassandra"

// Rows is the example table, with columns Columns.
var (
	Rows = [][]any{
		{"Alice", 1},
		{"Bob", 2},
		{"Charlie", 3},
	}
	Columns = []string{"Name", "Value"}
)

// Run executes the job. Tables are shown on out.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "job.Run")
	defer span.End()

	reg := prometheus.NewRegistry()
	builder := sql.SparkSession.Builder.
		Remote(cfg.Remote).
		AppName(cfg.AppName).
		Logger(logger).
		Registerer(reg).
		Output(out)
	for _, key := range sortedKeys(cfg.SparkConf) {
		builder = builder.Config(key, cfg.SparkConf[key])
	}

	spark, err := builder.GetOrCreate(ctx)
	if err != nil {
		return errors.Wrap(err, "creating spark session")
	}
	defer func() {
		err = multierr.Append(err, errors.Wrap(spark.Stop(), "stopping spark session"))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	logger.Info("spark session started",
		zap.String("app_name", cfg.AppName),
		zap.String("remote", cfg.Remote),
		zap.String("session_id", spark.SessionId()),
	)

	if cfg.Kafka.Enabled {
		if err := stage(ctx, "kafka", func(ctx context.Context) error {
			return readKafka(ctx, spark, cfg)
		}); err != nil {
			return err
		}
	}
	if cfg.JDBC.Enabled {
		if err := stage(ctx, "jdbc", func(ctx context.Context) error {
			return readJDBC(ctx, spark, cfg)
		}); err != nil {
			return err
		}
	}

	var df sql.DataFrame
	if err := stage(ctx, "local", func(ctx context.Context) error {
		var err error
		df, err = spark.CreateDataFrame(Rows, Columns...)
		if err != nil {
			return errors.Wrap(err, "creating dataframe")
		}
		return errors.Wrap(df.Show(ctx, cfg.Show.NumRows, cfg.Show.Truncate), "showing dataframe")
	}); err != nil {
		return err
	}

	if cfg.Cassandra.Enabled {
		if err := stage(ctx, "cassandra", func(ctx context.Context) error {
			return writeCassandra(ctx, df, cfg)
		}); err != nil {
			return err
		}
	}

	if cfg.PushgatewayURL != "" {
		if err := telemetry.Push(ctx, cfg.PushgatewayURL, Name, reg); err != nil {
			logger.Warn("metrics were not pushed", zap.Error(err))
		}
	}
	return nil
}

// stage runs fn in its own span and prefixes its error with the stage name.
func stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "job."+name)
	defer span.End()
	span.SetAttributes(attribute.String("stage", name))

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Wrapf(err, "stage %s", name)
	}
	return nil
}

func readKafka(ctx context.Context, spark sql.Session, cfg *config.Config) error {
	df, err := spark.Read().
		Format("kafka").
		Options(cfg.Kafka.Options).
		Option("kafka.bootstrap.servers", cfg.Kafka.BootstrapServers).
		Option("subscribe", cfg.Kafka.Topic).
		Option("startingOffsets", cfg.Kafka.StartingOffsets).
		Load()
	if err != nil {
		return errors.Wrap(err, "loading kafka topic")
	}
	return errors.Wrapf(df.Show(ctx, cfg.Show.NumRows, cfg.Show.Truncate), "reading topic %s", cfg.Kafka.Topic)
}

func readJDBC(ctx context.Context, spark sql.Session, cfg *config.Config) error {
	reader := spark.Read().
		Format("jdbc").
		Options(cfg.JDBC.Options).
		Option("url", cfg.JDBC.URL)
	source := cfg.JDBC.Query()
	if source == "" {
		reader = reader.Option("dbtable", cfg.JDBC.Table)
		source = cfg.JDBC.Table
	}
	if cfg.JDBC.User != "" {
		reader = reader.Option("user", cfg.JDBC.User)
	}
	if cfg.JDBC.Password != "" {
		reader = reader.Option("password", cfg.JDBC.Password)
	}
	df, err := reader.Load()
	if err != nil {
		return errors.Wrap(err, "loading jdbc table")
	}
	return errors.Wrapf(df.Show(ctx, cfg.Show.NumRows, cfg.Show.Truncate), "reading %s", source)
}

func writeCassandra(ctx context.Context, df sql.DataFrame, cfg *config.Config) error {
	writer := df.Write().
		Format(cassandraFormat).
		Options(cfg.Cassandra.Options).
		Option("keyspace", cfg.Cassandra.Keyspace).
		Option("table", cfg.Cassandra.Table).
		Mode(cfg.Cassandra.Mode)
	if cfg.Cassandra.Host != "" {
		writer = writer.Option("spark.cassandra.connection.host", cfg.Cassandra.Host)
	}
	return errors.Wrapf(writer.Save(ctx), "writing %s.%s", cfg.Cassandra.Keyspace, cfg.Cassandra.Table)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
