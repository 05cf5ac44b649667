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

package sql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connect"
	"github.com/apache/spark/go/sparkjob/internal/local"
)

const defaultClientType = "_SPARK_CONNECT_GO"

var SparkSession sparkSessionBuilderEntrypoint

type Session interface {
	Sql(ctx context.Context, query string) (DataFrame, error)
	CreateDataFrame(data [][]any, columns ...string) (DataFrame, error)
	CreateDataFrameWithSchema(data [][]any, schema *StructType) (DataFrame, error)
	Read() DataFrameReader
	Conf() RuntimeConfig
	Version(ctx context.Context) (string, error)
	SessionId() string
	Stop() error
}

type sparkSessionBuilderEntrypoint struct {
	Builder SparkSessionBuilder
}

type SparkSessionBuilder struct {
	connectionString string
	appName          string
	configs          map[string]string
	logger           *zap.Logger
	registerer       prometheus.Registerer
	output           io.Writer
}

func (s SparkSessionBuilder) Remote(connectionString string) SparkSessionBuilder {
	copy := s
	copy.connectionString = connectionString
	return copy
}

func (s SparkSessionBuilder) AppName(name string) SparkSessionBuilder {
	copy := s
	copy.appName = name
	return copy
}

func (s SparkSessionBuilder) Config(key, value string) SparkSessionBuilder {
	copy := s
	copy.configs = make(map[string]string, len(s.configs)+1)
	for k, v := range s.configs {
		copy.configs[k] = v
	}
	copy.configs[key] = value
	return copy
}

// Logger sets the logger used by the session and, in local mode, by the
// embedded engine.
func (s SparkSessionBuilder) Logger(logger *zap.Logger) SparkSessionBuilder {
	copy := s
	copy.logger = logger
	return copy
}

// Registerer sets where the embedded engine registers its metrics.
func (s SparkSessionBuilder) Registerer(reg prometheus.Registerer) SparkSessionBuilder {
	copy := s
	copy.registerer = reg
	return copy
}

// Output sets where DataFrame.Show prints. It defaults to os.Stdout.
func (s SparkSessionBuilder) Output(w io.Writer) SparkSessionBuilder {
	copy := s
	copy.output = w
	return copy
}

func (s SparkSessionBuilder) sessionConf() map[string]string {
	conf := make(map[string]string, len(s.configs)+1)
	for k, v := range s.configs {
		conf[k] = v
	}
	if s.appName != "" {
		conf["spark.app.name"] = s.appName
	}
	return conf
}

func (s SparkSessionBuilder) Build(ctx context.Context) (Session, error) {
	return s.build(ctx)
}

func (s SparkSessionBuilder) build(ctx context.Context) (*sparkSessionImpl, error) {
	r, err := parseRemote(s.connectionString)
	if err != nil {
		return nil, err
	}
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	output := s.output
	if output == nil {
		output = os.Stdout
	}
	conf := s.sessionConf()

	session := &sparkSessionImpl{
		sessionId:  uuid.NewString(),
		remote:     r.raw,
		clientType: defaultClientType,
		logger:     logger,
		output:     output,
	}
	if userId := r.params[userIdParam]; userId != "" {
		session.userContext = &connect.UserContext{UserId: userId}
	}
	if userAgent := r.params[userAgentParam]; userAgent != "" {
		session.clientType = userAgent
	}

	address := r.address
	if r.local {
		engineConf := map[string]string{"spark.master": r.raw}
		opts := append(local.DefaultConnectors(logger), local.WithConf(engineConf), local.WithConf(conf))
		if s.registerer != nil {
			opts = append(opts, local.WithRegisterer(s.registerer))
		}
		engine, err := local.NewEngine(logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create local engine: %w", err)
		}
		session.server, err = local.Start(engine)
		if err != nil {
			return nil, fmt.Errorf("failed to start local engine: %w", err)
		}
		address = session.server.Addr()
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to connect to remote %s: %w", r.raw, err),
			session.stopServer(),
		)
	}
	session.conn = conn
	session.client = connect.NewSparkConnectServiceClient(conn)

	if !r.local {
		session.applyConf(ctx, conf)
	}
	logger.Debug("spark session created",
		zap.String("session_id", session.sessionId),
		zap.String("remote", r.raw),
		zap.Bool("local", r.local),
	)
	return session, nil
}

var (
	activeMu      sync.Mutex
	activeSession *sparkSessionImpl
)

// GetOrCreate returns the active session when it is connected to the same
// remote and not stopped, applying the builder's configs to it. Otherwise it
// builds a new session and makes it the active one.
func (s SparkSessionBuilder) GetOrCreate(ctx context.Context) (Session, error) {
	activeMu.Lock()
	defer activeMu.Unlock()

	r, err := parseRemote(s.connectionString)
	if err != nil {
		return nil, err
	}
	if activeSession != nil && !activeSession.isStopped() && activeSession.remote == r.raw {
		activeSession.applyConf(ctx, s.sessionConf())
		return activeSession, nil
	}
	session, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	activeSession = session
	return session, nil
}

type sparkSessionImpl struct {
	sessionId   string
	remote      string
	clientType  string
	userContext *connect.UserContext
	client      connect.SparkConnectServiceClient
	conn        *grpc.ClientConn
	server      *local.Server
	logger      *zap.Logger
	output      io.Writer

	stopOnce sync.Once
	stopMu   sync.Mutex
	stopped  bool
	stopErr  error
}

func (s *sparkSessionImpl) SessionId() string {
	return s.sessionId
}

// applyConf sets each entry on the server. Servers refuse some keys, static
// configs such as spark.jars among them; those are logged and skipped.
func (s *sparkSessionImpl) applyConf(ctx context.Context, conf map[string]string) {
	for k, v := range conf {
		if err := s.Conf().Set(ctx, k, v); err != nil {
			s.logger.Warn("spark config was not applied", zap.String("key", k), zap.Error(err))
		}
	}
}

func (s *sparkSessionImpl) Sql(ctx context.Context, query string) (DataFrame, error) {
	plan := &connect.Plan{
		Command: &connect.Command{
			SqlCommand: &connect.SqlCommand{
				Sql: query,
			},
		},
	}
	responseClient, err := s.executePlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to execute sql: %s: %w", query, err)
	}
	for {
		response, err := responseClient.Recv()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to get SqlCommandResult in ExecutePlan response")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive ExecutePlan response: %w", err)
		}
		sqlCommandResult := response.GetSqlCommandResult()
		if sqlCommandResult == nil {
			continue
		}
		return &dataFrameImpl{
			sparkSession: s,
			relation:     sqlCommandResult.GetRelation(),
		}, nil
	}
}

// CreateDataFrame builds a DataFrame from local rows. Column types are
// inferred from the values; without column names the columns are _1, _2, ...
func (s *sparkSessionImpl) CreateDataFrame(data [][]any, columns ...string) (DataFrame, error) {
	if len(columns) == 0 {
		if len(data) == 0 {
			return nil, fmt.Errorf("cannot infer columns of an empty DataFrame without names")
		}
		for i := range data[0] {
			columns = append(columns, fmt.Sprintf("_%d", i+1))
		}
	}
	schema, err := columnar.InferSchema(data, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to infer schema: %w", err)
	}
	return s.localDataFrame(&columnar.Table{Schema: schema, Rows: data}, "")
}

func (s *sparkSessionImpl) CreateDataFrameWithSchema(data [][]any, schema *StructType) (DataFrame, error) {
	arrowSchema, err := schema.toArrow()
	if err != nil {
		return nil, err
	}
	ddl, err := columnar.FormatDDL(arrowSchema)
	if err != nil {
		return nil, err
	}
	return s.localDataFrame(&columnar.Table{Schema: arrowSchema, Rows: data}, ddl)
}

func (s *sparkSessionImpl) localDataFrame(table *columnar.Table, ddl string) (DataFrame, error) {
	data, err := columnar.Encode(table)
	if err != nil {
		return nil, fmt.Errorf("failed to encode local data: %w", err)
	}
	return &dataFrameImpl{
		sparkSession: s,
		relation: &connect.Relation{
			LocalRelation: &connect.LocalRelation{
				Data:   data,
				Schema: ddl,
			},
		},
	}, nil
}

func (s *sparkSessionImpl) Read() DataFrameReader {
	return &dataFrameReaderImpl{sparkSession: s}
}

func (s *sparkSessionImpl) Conf() RuntimeConfig {
	return &runtimeConfigImpl{sparkSession: s}
}

func (s *sparkSessionImpl) Version(ctx context.Context) (string, error) {
	request := connect.AnalyzePlanRequest{
		SessionId:    s.sessionId,
		UserContext:  s.userContext,
		ClientType:   s.clientType,
		SparkVersion: &connect.AnalyzeSparkVersion{},
	}
	response, err := s.client.AnalyzePlan(ctx, &request)
	if err != nil {
		return "", fmt.Errorf("failed to call AnalyzePlan in session %s: %w", s.sessionId, err)
	}
	return response.SparkVersion, nil
}

// Stop closes the connection and, in local mode, shuts the embedded engine
// down. Calling it again returns the first result.
func (s *sparkSessionImpl) Stop() error {
	s.stopOnce.Do(func() {
		s.stopMu.Lock()
		s.stopped = true
		s.stopMu.Unlock()

		activeMu.Lock()
		if activeSession == s {
			activeSession = nil
		}
		activeMu.Unlock()

		var err error
		if s.conn != nil {
			err = multierr.Append(err, s.conn.Close())
		}
		err = multierr.Append(err, s.stopServer())
		s.stopErr = err
		s.logger.Debug("spark session stopped", zap.String("session_id", s.sessionId), zap.Error(err))
	})
	return s.stopErr
}

func (s *sparkSessionImpl) stopServer() error {
	if s.server == nil {
		return nil
	}
	return s.server.Stop()
}

func (s *sparkSessionImpl) isStopped() bool {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	return s.stopped
}

func (s *sparkSessionImpl) executePlan(ctx context.Context, plan *connect.Plan) (connect.ExecutePlanClient, error) {
	request := connect.ExecutePlanRequest{
		SessionId:   s.sessionId,
		UserContext: s.userContext,
		ClientType:  s.clientType,
		Plan:        plan,
	}
	executePlanClient, err := s.client.ExecutePlan(ctx, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to call ExecutePlan in session %s: %w", s.sessionId, err)
	}
	return executePlanClient, nil
}

func (s *sparkSessionImpl) analyzePlan(ctx context.Context, plan *connect.Plan) (*connect.AnalyzePlanResponse, error) {
	request := connect.AnalyzePlanRequest{
		SessionId:   s.sessionId,
		UserContext: s.userContext,
		ClientType:  s.clientType,
		Schema: &connect.AnalyzeSchema{
			Plan: plan,
		},
	}
	response, err := s.client.AnalyzePlan(ctx, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to call AnalyzePlan in session %s: %w", s.sessionId, err)
	}
	return response, nil
}

func (s *sparkSessionImpl) config(ctx context.Context, operation *connect.ConfigOperation) (*connect.ConfigResponse, error) {
	request := connect.ConfigRequest{
		SessionId:   s.sessionId,
		UserContext: s.userContext,
		ClientType:  s.clientType,
		Operation:   operation,
	}
	response, err := s.client.Config(ctx, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to call Config in session %s: %w", s.sessionId, err)
	}
	for _, warning := range response.Warnings {
		s.logger.Warn("spark config warning", zap.String("warning", warning))
	}
	return response, nil
}
