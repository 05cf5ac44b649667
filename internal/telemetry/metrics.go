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
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics counts what the embedded engine does.
type Metrics struct {
	PlansExecuted *prometheus.CounterVec
	RowsRead      *prometheus.CounterVec
	RowsWritten   *prometheus.CounterVec
}

// NewMetrics creates the engine metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PlansExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark_local",
				Name:      "plans_executed_total",
				Help:      "Total number of plans executed by the embedded engine.",
			},
			[]string{"kind"},
		),
		RowsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark_local",
				Name:      "rows_read_total",
				Help:      "Total number of rows loaded from data sources.",
			},
			[]string{"format"},
		),
		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spark_local",
				Name:      "rows_written_total",
				Help:      "Total number of rows saved to data sinks.",
			},
			[]string{"format"},
		),
	}
	for _, c := range []prometheus.Collector{m.PlansExecuted, m.RowsRead, m.RowsWritten} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Push sends everything in g to a Prometheus Pushgateway under the given job name.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
