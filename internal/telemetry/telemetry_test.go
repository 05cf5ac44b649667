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

package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.PlansExecuted.WithLabelValues("relation").Inc()
	m.RowsRead.WithLabelValues("jdbc").Add(3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansExecuted.WithLabelValues("relation")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsRead.WithLabelValues("jdbc")))

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestPush(t *testing.T) {
	var method, path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	m.RowsWritten.WithLabelValues("cassandra").Add(3)

	require.NoError(t, Push(context.Background(), server.URL, "example-job", reg))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/example-job", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := Push(context.Background(), server.URL, "example-job", prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestInitTracingDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.False(t, TracingEnabled())

	shutdown, err := InitTracing(context.Background(), "example-job", zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	assert.True(t, TracingEnabled())
	t.Setenv("OTEL_SDK_DISABLED", "true")
	assert.False(t, TracingEnabled())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler("always_on", "").Description())
	assert.Equal(t, "AlwaysOffSampler", sampler("always_off", "").Description())
	assert.Equal(t, "TraceIDRatioBased{0.5}", sampler("traceidratio", "0.5").Description())
	assert.Contains(t, sampler("", "").Description(), "ParentBased{root:AlwaysOnSampler")
	assert.Contains(t, sampler("parentbased_traceidratio", "0.25").Description(), "ParentBased{root:TraceIDRatioBased{0.25}")
}
