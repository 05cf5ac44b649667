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

// Package local is an embedded Spark Connect server. It executes the small set
// of plans the client library emits in-process, so a session with a local
// master needs no cluster.
package local

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connect"
	"github.com/apache/spark/go/sparkjob/internal/connectors"
	"github.com/apache/spark/go/sparkjob/internal/telemetry"
)

// SparkVersion is reported by AnalyzePlan.
const SparkVersion = "3.4.0"

type Engine struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics
	sources map[string]connectors.Source
	sinks   map[string]connectors.Sink

	mu   sync.RWMutex
	conf map[string]string
}

type Option func(*engineOptions)

type engineOptions struct {
	conf       map[string]string
	sources    map[string]connectors.Source
	sinks      map[string]connectors.Sink
	registerer prometheus.Registerer
}

// WithConf seeds the session configuration.
func WithConf(conf map[string]string) Option {
	return func(o *engineOptions) {
		for k, v := range conf {
			o.conf[k] = v
		}
	}
}

// WithSource registers a data source under a format name. Format names are
// case-insensitive.
func WithSource(format string, source connectors.Source) Option {
	return func(o *engineOptions) {
		o.sources[strings.ToLower(format)] = source
	}
}

func WithSink(format string, sink connectors.Sink) Option {
	return func(o *engineOptions) {
		o.sinks[strings.ToLower(format)] = sink
	}
}

// WithRegisterer registers the engine metrics with reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

func NewEngine(logger *zap.Logger, opts ...Option) (*Engine, error) {
	o := &engineOptions{
		conf:       map[string]string{},
		sources:    map[string]connectors.Source{},
		sinks:      map[string]connectors.Sink{},
		registerer: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}
	metrics, err := telemetry.NewMetrics(o.registerer)
	if err != nil {
		return nil, err
	}
	return &Engine{
		logger:  logger.Named("local"),
		metrics: metrics,
		sources: o.sources,
		sinks:   o.sinks,
		conf:    o.conf,
	}, nil
}

func (e *Engine) ExecutePlan(req *connect.ExecutePlanRequest, stream connect.ExecutePlanServer) error {
	ctx, span := telemetry.Tracer().Start(stream.Context(), "local.ExecutePlan")
	defer span.End()

	err := e.executePlan(ctx, req, stream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("plan failed", zap.String("session_id", req.SessionId), zap.Error(err))
	}
	return toStatus(err)
}

func (e *Engine) executePlan(ctx context.Context, req *connect.ExecutePlanRequest, stream connect.ExecutePlanServer) error {
	plan := req.Plan
	switch {
	case plan == nil:
		return status.Error(grpccodes.InvalidArgument, "request has no plan")
	case plan.Command != nil:
		e.metrics.PlansExecuted.WithLabelValues("command").Inc()
		return e.executeCommand(ctx, plan.Command)
	case plan.Root != nil:
		e.metrics.PlansExecuted.WithLabelValues("relation").Inc()
		table, err := e.evaluate(ctx, plan.Root)
		if err != nil {
			return err
		}
		return sendTable(req.SessionId, table, stream)
	default:
		return status.Error(grpccodes.InvalidArgument, "plan has neither a root relation nor a command")
	}
}

func sendTable(sessionId string, table *columnar.Table, stream connect.ExecutePlanServer) error {
	err := stream.Send(&connect.ExecutePlanResponse{
		SessionId: sessionId,
		Schema:    columnar.StructOf(table.Schema),
	})
	if err != nil {
		return err
	}
	data, err := columnar.Encode(table)
	if err != nil {
		return status.Errorf(grpccodes.Internal, "failed to encode result: %v", err)
	}
	return stream.Send(&connect.ExecutePlanResponse{
		SessionId: sessionId,
		ArrowBatch: &connect.ArrowBatch{
			RowCount: int64(table.NumRows()),
			Data:     data,
		},
	})
}

func (e *Engine) executeCommand(ctx context.Context, cmd *connect.Command) error {
	switch {
	case cmd.WriteOperation != nil:
		return e.write(ctx, cmd.WriteOperation)
	case cmd.SqlCommand != nil:
		return status.Error(grpccodes.Unimplemented, "the local engine does not run SQL")
	default:
		return status.Error(grpccodes.Unimplemented, "command type is not supported")
	}
}

func (e *Engine) AnalyzePlan(ctx context.Context, req *connect.AnalyzePlanRequest) (*connect.AnalyzePlanResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "local.AnalyzePlan")
	defer span.End()

	resp := &connect.AnalyzePlanResponse{SessionId: req.SessionId}
	switch {
	case req.SparkVersion != nil:
		resp.SparkVersion = SparkVersion
	case req.Schema != nil:
		if req.Schema.Plan == nil || req.Schema.Plan.Root == nil {
			return nil, status.Error(grpccodes.InvalidArgument, "schema analysis needs a root relation")
		}
		table, err := e.evaluate(ctx, req.Schema.Plan.Root)
		if err != nil {
			return nil, toStatus(err)
		}
		resp.Schema = columnar.StructOf(table.Schema)
	default:
		return nil, status.Error(grpccodes.Unimplemented, "analysis type is not supported")
	}
	return resp, nil
}

func (e *Engine) Config(ctx context.Context, req *connect.ConfigRequest) (*connect.ConfigResponse, error) {
	op := req.Operation
	if op == nil {
		return nil, status.Error(grpccodes.InvalidArgument, "request has no operation")
	}
	resp := &connect.ConfigResponse{SessionId: req.SessionId}

	switch {
	case len(op.Set) > 0:
		e.mu.Lock()
		defer e.mu.Unlock()
		for _, kv := range op.Set {
			if kv.Value == nil {
				return nil, status.Errorf(grpccodes.InvalidArgument, "no value for %s", kv.Key)
			}
		}
		for _, kv := range op.Set {
			e.conf[kv.Key] = *kv.Value
		}
	case len(op.Get) > 0:
		e.mu.RLock()
		defer e.mu.RUnlock()
		for _, key := range op.Get {
			v, ok := e.conf[key]
			if !ok {
				return nil, status.Errorf(grpccodes.NotFound, "config %s is not set", key)
			}
			resp.Pairs = append(resp.Pairs, &connect.KeyValue{Key: key, Value: &v})
		}
	case op.GetAll != nil:
		var prefix string
		if op.GetAll.Prefix != nil {
			prefix = *op.GetAll.Prefix
		}
		for key, v := range e.confWithPrefix(prefix) {
			v := v
			resp.Pairs = append(resp.Pairs, &connect.KeyValue{Key: key, Value: &v})
		}
		sort.Slice(resp.Pairs, func(i, j int) bool { return resp.Pairs[i].Key < resp.Pairs[j].Key })
	default:
		return nil, status.Error(grpccodes.InvalidArgument, "config operation is empty")
	}
	return resp, nil
}

func (e *Engine) confWithPrefix(prefix string) map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := map[string]string{}
	for k, v := range e.conf {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

func (e *Engine) confValue(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.conf[key]
}

func (e *Engine) evaluate(ctx context.Context, rel *connect.Relation) (*columnar.Table, error) {
	switch {
	case rel == nil:
		return nil, status.Error(grpccodes.InvalidArgument, "missing relation")
	case rel.LocalRelation != nil:
		return localRelation(rel.LocalRelation)
	case rel.Limit != nil:
		if rel.Limit.Limit < 0 {
			return nil, status.Errorf(grpccodes.InvalidArgument, "limit must be non-negative, got %d", rel.Limit.Limit)
		}
		input, err := e.evaluate(ctx, rel.Limit.Input)
		if err != nil {
			return nil, err
		}
		return input.Head(int(rel.Limit.Limit)), nil
	case rel.ShowString != nil:
		show := rel.ShowString
		if show.Vertical {
			return nil, status.Error(grpccodes.Unimplemented, "vertical show is not supported")
		}
		input, err := e.evaluate(ctx, show.Input)
		if err != nil {
			return nil, err
		}
		text := showString(input, int(show.NumRows), int(show.Truncate))
		return &columnar.Table{Schema: showStringSchema, Rows: [][]any{{text}}}, nil
	case rel.Read != nil:
		if rel.Read.DataSource == nil {
			return nil, status.Error(grpccodes.Unimplemented, "named tables are not supported")
		}
		return e.read(ctx, rel.Read.DataSource)
	case rel.Sql != nil:
		return nil, status.Error(grpccodes.Unimplemented, "the local engine does not run SQL")
	default:
		return nil, status.Error(grpccodes.Unimplemented, "relation type is not supported")
	}
}

func localRelation(rel *connect.LocalRelation) (*columnar.Table, error) {
	if rel.Schema != "" && strings.HasPrefix(strings.TrimSpace(rel.Schema), "{") {
		return nil, status.Error(grpccodes.InvalidArgument, "JSON schemas are not supported, use DDL")
	}
	if len(rel.Data) == 0 {
		if rel.Schema == "" {
			return nil, status.Error(grpccodes.InvalidArgument, "local relation has neither data nor schema")
		}
		ddl, err := columnar.ParseDDL(rel.Schema)
		if err != nil {
			return nil, status.Errorf(grpccodes.InvalidArgument, "invalid schema: %v", err)
		}
		return &columnar.Table{Schema: ddl}, nil
	}
	decoded, err := columnar.Decode(rel.Data)
	if err != nil {
		return nil, status.Errorf(grpccodes.InvalidArgument, "invalid local relation data: %v", err)
	}
	if rel.Schema == "" {
		return decoded, nil
	}
	ddl, err := columnar.ParseDDL(rel.Schema)
	if err != nil {
		return nil, status.Errorf(grpccodes.InvalidArgument, "invalid schema: %v", err)
	}
	table, err := columnar.ApplySchema(decoded, ddl)
	if err != nil {
		return nil, status.Errorf(grpccodes.InvalidArgument, "data does not match schema: %v", err)
	}
	return table, nil
}

func (e *Engine) read(ctx context.Context, ds *connect.DataSource) (*columnar.Table, error) {
	format := strings.ToLower(ds.Format)
	source, ok := e.sources[format]
	if !ok {
		return nil, status.Errorf(grpccodes.InvalidArgument, "unsupported data source %q", ds.Format)
	}
	ctx, span := telemetry.Tracer().Start(ctx, "local.Read")
	defer span.End()
	span.SetAttributes(attribute.String("format", format))

	options := e.connectorOptions(format, ds.Options, ds.Paths)
	table, err := source.Load(ctx, options)
	if err != nil {
		return nil, err
	}
	if ds.Schema != "" {
		ddl, err := columnar.ParseDDL(ds.Schema)
		if err != nil {
			return nil, status.Errorf(grpccodes.InvalidArgument, "invalid schema: %v", err)
		}
		if table, err = columnar.ApplySchema(table, ddl); err != nil {
			return nil, status.Errorf(grpccodes.InvalidArgument, "data does not match schema: %v", err)
		}
	}
	e.metrics.RowsRead.WithLabelValues(format).Add(float64(table.NumRows()))
	e.logger.Debug("loaded data source", zap.String("format", format), zap.Int("rows", table.NumRows()))
	return table, nil
}

func (e *Engine) write(ctx context.Context, op *connect.WriteOperation) error {
	format := strings.ToLower(op.Source)
	if format == "" {
		format = strings.ToLower(e.confValue(defaultSourceKey))
	}
	if format == "" {
		format = "parquet"
	}
	sink, ok := e.sinks[format]
	if !ok {
		return status.Errorf(grpccodes.InvalidArgument, "unsupported data sink %q", format)
	}
	table, err := e.evaluate(ctx, op.Input)
	if err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "local.Write")
	defer span.End()
	span.SetAttributes(attribute.String("format", format), attribute.Stringer("mode", op.Mode))

	var paths []string
	if op.Path != "" {
		paths = []string{op.Path}
	}
	if err := sink.Save(ctx, table, op.Mode, e.connectorOptions(format, op.Options, paths)); err != nil {
		return err
	}
	e.metrics.RowsWritten.WithLabelValues(format).Add(float64(table.NumRows()))
	e.logger.Debug("saved data sink", zap.String("format", format), zap.Stringer("mode", op.Mode), zap.Int("rows", table.NumRows()))
	return nil
}

const defaultSourceKey = "spark.sql.sources.default"

// connectorOptions merges the session conf entries a connector reads (for
// example spark.cassandra.*) with explicit options. Explicit options win.
func (e *Engine) connectorOptions(format string, explicit map[string]string, paths []string) connectors.Options {
	var conf map[string]string
	if prefix, ok := confPrefixes[format]; ok {
		conf = e.confWithPrefix(prefix)
	}
	var path map[string]string
	if len(paths) > 0 {
		path = map[string]string{"path": strings.Join(paths, ",")}
	}
	return connectors.NewOptions(conf, path, explicit)
}

var showStringSchema = arrow.NewSchema([]arrow.Field{{Name: "show_string", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)

// toStatus maps connector errors onto gRPC status codes. Errors that already
// carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	var invalid *connectors.InvalidOptionError
	if errors.As(err, &invalid) {
		return status.Error(grpccodes.InvalidArgument, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(grpccodes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(grpccodes.DeadlineExceeded, err.Error())
	}
	return status.Error(grpccodes.Internal, err.Error())
}
