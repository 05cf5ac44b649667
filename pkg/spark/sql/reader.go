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
	"fmt"

	"github.com/apache/spark/go/sparkjob/internal/connect"
)

// DataFrameReader loads a DataFrame from an external data source.
type DataFrameReader interface {
	Format(source string) DataFrameReader
	Option(key, value string) DataFrameReader
	Options(options map[string]string) DataFrameReader
	// Schema sets a DDL schema such as "name STRING, value BIGINT".
	Schema(ddl string) DataFrameReader
	Load(paths ...string) (DataFrame, error)
}

type dataFrameReaderImpl struct {
	sparkSession *sparkSessionImpl
	format       string
	schema       string
	options      map[string]string
}

func (r *dataFrameReaderImpl) Format(source string) DataFrameReader {
	r.format = source
	return r
}

func (r *dataFrameReaderImpl) Option(key, value string) DataFrameReader {
	if r.options == nil {
		r.options = map[string]string{}
	}
	r.options[key] = value
	return r
}

func (r *dataFrameReaderImpl) Options(options map[string]string) DataFrameReader {
	for k, v := range options {
		r.Option(k, v)
	}
	return r
}

func (r *dataFrameReaderImpl) Schema(ddl string) DataFrameReader {
	r.schema = ddl
	return r
}

func (r *dataFrameReaderImpl) Load(paths ...string) (DataFrame, error) {
	if r.format == "" {
		return nil, fmt.Errorf("data source format is not set")
	}
	options := make(map[string]string, len(r.options))
	for k, v := range r.options {
		options[k] = v
	}
	return &dataFrameImpl{
		sparkSession: r.sparkSession,
		relation: &connect.Relation{
			Common: &connect.RelationCommon{
				PlanId: newPlanId(),
			},
			Read: &connect.Read{
				DataSource: &connect.DataSource{
					Format:  r.format,
					Schema:  r.schema,
					Options: options,
					Paths:   paths,
				},
			},
		},
	}, nil
}
