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

// Package cassandra writes tables to Cassandra with the option names of the
// Spark Cassandra connector.
package cassandra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connect"
	"github.com/apache/spark/go/sparkjob/internal/connectors"
)

const (
	Format      = "org.apache.spark.sql.cassandra"
	ShortFormat = "cassandra"

	defaultBatchRows   = 64
	defaultPort        = 9042
	defaultConsistency = "LOCAL_QUORUM"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Session is the part of a gocql session the sink uses.
type Session interface {
	Exec(ctx context.Context, stmt string, values ...any) error
	// ExecBatch runs stmt once per row in a single unlogged batch.
	ExecBatch(ctx context.Context, stmt string, rows [][]any) error
	HasRows(ctx context.Context, keyspace, table string) (bool, error)
	Close()
}

// ClusterOptions are the connection settings read from the sink options.
type ClusterOptions struct {
	Hosts       []string
	Port        int
	Keyspace    string
	Username    string
	Password    string
	Consistency gocql.Consistency
	Timeout     time.Duration
}

var connectSession = func(opts ClusterOptions, logger *zap.Logger) (Session, error) {
	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Port = opts.Port
	cluster.Keyspace = opts.Keyspace
	cluster.Consistency = opts.Consistency
	cluster.Timeout = opts.Timeout
	cluster.Logger = zap.NewStdLog(logger.Named("gocql"))
	if opts.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: opts.Username,
			Password: opts.Password,
		}
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &gocqlSession{session: session}, nil
}

type Sink struct {
	logger *zap.Logger
}

func NewSink(logger *zap.Logger) *Sink {
	return &Sink{logger: logger.Named("cassandra")}
}

func (s *Sink) Save(ctx context.Context, table *columnar.Table, mode connect.SaveMode, options connectors.Options) error {
	keyspace, err := requireIdentifier(options, "keyspace")
	if err != nil {
		return err
	}
	tableName, err := requireIdentifier(options, "table")
	if err != nil {
		return err
	}
	batchRows, err := options.Int("spark.cassandra.output.batch.size.rows", defaultBatchRows)
	if err != nil {
		return err
	}
	if batchRows <= 0 {
		return &connectors.InvalidOptionError{Key: "spark.cassandra.output.batch.size.rows", Reason: "must be positive"}
	}
	confirmTruncate, err := options.Bool("confirm.truncate", false)
	if err != nil {
		return err
	}
	if mode == connect.SaveModeOverwrite && !confirmTruncate {
		return &connectors.InvalidOptionError{
			Key:    "confirm.truncate",
			Reason: "overwrite truncates the table; set confirm.truncate to true",
		}
	}
	columns := make([]string, 0, len(table.ColumnNames()))
	for _, name := range table.ColumnNames() {
		if !identifier.MatchString(name) {
			return fmt.Errorf("column %q is not a valid Cassandra identifier", name)
		}
		columns = append(columns, strings.ToLower(name))
	}
	clusterOptions, err := readClusterOptions(options, keyspace)
	if err != nil {
		return err
	}

	session, err := connectSession(clusterOptions, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to cassandra at %v: %w", clusterOptions.Hosts, err)
	}
	defer session.Close()

	switch mode {
	case connect.SaveModeOverwrite:
		if err := session.Exec(ctx, fmt.Sprintf("TRUNCATE %s.%s", keyspace, tableName)); err != nil {
			return fmt.Errorf("failed to truncate %s.%s: %w", keyspace, tableName, err)
		}
	case connect.SaveModeErrorIfExists, connect.SaveModeUnspecified, connect.SaveModeIgnore:
		hasRows, err := session.HasRows(ctx, keyspace, tableName)
		if err != nil {
			return fmt.Errorf("failed to inspect %s.%s: %w", keyspace, tableName, err)
		}
		if hasRows && mode == connect.SaveModeIgnore {
			s.logger.Info("table is not empty, skipping write", zap.String("keyspace", keyspace), zap.String("table", tableName))
			return nil
		}
		if hasRows {
			return fmt.Errorf("table %s.%s already exists and is not empty", keyspace, tableName)
		}
	}

	stmt := insertStatement(keyspace, tableName, columns)
	for start := 0; start < len(table.Rows); start += batchRows {
		end := min(start+batchRows, len(table.Rows))
		if err := session.ExecBatch(ctx, stmt, table.Rows[start:end]); err != nil {
			return fmt.Errorf("failed to write rows %d-%d to %s.%s: %w", start, end-1, keyspace, tableName, err)
		}
	}
	s.logger.Debug("wrote rows",
		zap.String("keyspace", keyspace),
		zap.String("table", tableName),
		zap.Stringer("mode", mode),
		zap.Int("rows", len(table.Rows)),
	)
	return nil
}

func readClusterOptions(options connectors.Options, keyspace string) (ClusterOptions, error) {
	port, err := options.Int("spark.cassandra.connection.port", defaultPort)
	if err != nil {
		return ClusterOptions{}, err
	}
	consistency, err := gocql.ParseConsistencyWrapper(options.GetOrDefault("spark.cassandra.output.consistency.level", defaultConsistency))
	if err != nil {
		return ClusterOptions{}, &connectors.InvalidOptionError{Key: "spark.cassandra.output.consistency.level", Reason: err.Error()}
	}
	timeoutMs, err := options.Int("spark.cassandra.read.timeoutMS", 120000)
	if err != nil {
		return ClusterOptions{}, err
	}
	var hosts []string
	for _, h := range strings.Split(options.GetOrDefault("spark.cassandra.connection.host", "localhost"), ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return ClusterOptions{
		Hosts:       hosts,
		Port:        port,
		Keyspace:    keyspace,
		Username:    options.GetOrDefault("spark.cassandra.auth.username", ""),
		Password:    options.GetOrDefault("spark.cassandra.auth.password", ""),
		Consistency: consistency,
		Timeout:     time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

func requireIdentifier(options connectors.Options, key string) (string, error) {
	v, err := options.Require(key)
	if err != nil {
		return "", err
	}
	if !identifier.MatchString(v) {
		return "", &connectors.InvalidOptionError{Key: key, Reason: fmt.Sprintf("%q is not a valid identifier", v)}
	}
	return strings.ToLower(v), nil
}

func insertStatement(keyspace, table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)", keyspace, table, strings.Join(columns, ", "), placeholders)
}

type gocqlSession struct {
	session *gocql.Session
}

func (s *gocqlSession) Exec(ctx context.Context, stmt string, values ...any) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

func (s *gocqlSession) ExecBatch(ctx context.Context, stmt string, rows [][]any) error {
	batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, row := range rows {
		batch.Query(stmt, row...)
	}
	return s.session.ExecuteBatch(batch)
}

func (s *gocqlSession) HasRows(ctx context.Context, keyspace, table string) (bool, error) {
	iter := s.session.Query(fmt.Sprintf("SELECT * FROM %s.%s LIMIT 1", keyspace, table)).WithContext(ctx).Iter()
	n := iter.NumRows()
	if err := iter.Close(); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *gocqlSession) Close() {
	s.session.Close()
}
