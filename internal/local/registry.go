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

package local

import (
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/connectors/cassandra"
	"github.com/apache/spark/go/sparkjob/internal/connectors/jdbc"
	"github.com/apache/spark/go/sparkjob/internal/connectors/kafka"
)

// confPrefixes lists the session conf keys a connector reads in addition to
// its explicit options.
var confPrefixes = map[string]string{
	cassandra.Format:      "spark.cassandra.",
	cassandra.ShortFormat: "spark.cassandra.",
}

// DefaultConnectors registers the kafka and jdbc sources and the cassandra sink.
func DefaultConnectors(logger *zap.Logger) []Option {
	sink := cassandra.NewSink(logger)
	return []Option{
		WithSource(kafka.Format, kafka.NewSource(logger)),
		WithSource(jdbc.Format, jdbc.NewSource(logger)),
		WithSink(cassandra.Format, sink),
		WithSink(cassandra.ShortFormat, sink),
	}
}
