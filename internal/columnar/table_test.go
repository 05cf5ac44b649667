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

package columnar

import (
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/spark/go/sparkjob/internal/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2023, 4, 13, 10, 30, 0, 123456000, time.UTC)
	rows := [][]any{
		{"Alice", 1, true, 1.5, []byte{0x0a}, ts},
		{"Bob", int64(2), false, nil, nil, nil},
	}
	schema, err := InferSchema(rows, []string{"Name", "Value", "Flag", "Score", "Raw", "At"})
	require.NoError(t, err)

	data, err := Encode(&Table{Schema: schema, Rows: rows})
	require.NoError(t, err)

	table, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Value", "Flag", "Score", "Raw", "At"}, table.ColumnNames())
	assert.Equal(t, [][]any{
		{"Alice", int64(1), true, 1.5, []byte{0x0a}, ts},
		{"Bob", int64(2), false, nil, nil, nil},
	}, table.Rows)
}

func TestInferSchema(t *testing.T) {
	schema, err := InferSchema([][]any{
		{nil, int32(1)},
		{"x", int32(2)},
	}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, arrow.STRING, schema.Field(0).Type.ID())
	assert.Equal(t, arrow.INT32, schema.Field(1).Type.ID())

	schema, err = InferSchema([][]any{{nil}}, []string{"empty"})
	require.NoError(t, err)
	assert.Equal(t, arrow.NULL, schema.Field(0).Type.ID())

	_, err = InferSchema([][]any{{"a", "b"}}, []string{"only"})
	assert.Error(t, err)

	_, err = InferSchema([][]any{{struct{}{}}}, []string{"odd"})
	assert.Error(t, err)
}

func TestEncodeDatesBeforeEpoch(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "d", Type: arrow.FixedWidthTypes.Date32, Nullable: true}}, nil)
	rows := [][]any{
		{time.Date(1969, 12, 31, 18, 0, 0, 0, time.UTC)},
		{time.Date(1970, 1, 1, 6, 0, 0, 0, time.UTC)},
		{time.Date(1900, 3, 1, 23, 59, 59, 0, time.UTC)},
	}

	data, err := Encode(&Table{Schema: schema, Rows: rows})
	require.NoError(t, err)
	table, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{time.Date(1969, 12, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)},
	}, table.Rows)
}

func TestEncodeRejectsMismatchedValues(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32, Nullable: true}}, nil)

	_, err := Encode(&Table{Schema: schema, Rows: [][]any{{"not a number"}}})
	assert.Error(t, err)

	_, err = Encode(&Table{Schema: schema, Rows: [][]any{{int64(1) << 40}}})
	assert.Error(t, err)
}

func TestDecodeEmptyTable(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64}}, nil)
	data, err := Encode(&Table{Schema: schema})
	require.NoError(t, err)

	table, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumRows())
	assert.Equal(t, []string{"n"}, table.ColumnNames())
}

func TestHead(t *testing.T) {
	table := &Table{Rows: [][]any{{1}, {2}, {3}}}
	assert.Len(t, table.Head(2).Rows, 2)
	assert.Len(t, table.Head(10).Rows, 3)
	assert.Len(t, table.Head(-1).Rows, 0)
}

func TestParseDDL(t *testing.T) {
	schema, err := ParseDDL("Name STRING, `Value` BIGINT NOT NULL, price DECIMAL(10,2)")
	assert.Error(t, err)
	assert.Nil(t, schema)

	schema, err = ParseDDL("Name STRING, `the value` bigint NOT NULL, code VARCHAR(10)")
	require.NoError(t, err)
	require.Len(t, schema.Fields(), 3)
	assert.Equal(t, "Name", schema.Field(0).Name)
	assert.True(t, schema.Field(0).Nullable)
	assert.Equal(t, "the value", schema.Field(1).Name)
	assert.Equal(t, arrow.INT64, schema.Field(1).Type.ID())
	assert.False(t, schema.Field(1).Nullable)
	assert.Equal(t, arrow.STRING, schema.Field(2).Type.ID())

	_, err = ParseDDL("")
	assert.Error(t, err)
	_, err = ParseDDL("justaname")
	assert.Error(t, err)
}

func TestFormatDDLRoundTrip(t *testing.T) {
	schema, err := InferSchema([][]any{{"Alice", 1}}, []string{"Name", "Value"})
	require.NoError(t, err)

	ddl, err := FormatDDL(schema)
	require.NoError(t, err)
	assert.Equal(t, "`Name` STRING, `Value` BIGINT", ddl)

	parsed, err := ParseDDL(ddl)
	require.NoError(t, err)
	assert.True(t, schema.Equal(parsed))
}

func TestApplySchema(t *testing.T) {
	rows := [][]any{{"Alice", int64(1)}}
	schema, err := InferSchema(rows, []string{"_1", "_2"})
	require.NoError(t, err)

	target, err := ParseDDL("Name STRING, Value INT")
	require.NoError(t, err)

	table, err := ApplySchema(&Table{Schema: schema, Rows: rows}, target)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Value"}, table.ColumnNames())
	assert.Equal(t, [][]any{{"Alice", int32(1)}}, table.Rows)

	_, err = ApplySchema(&Table{Schema: schema, Rows: rows}, arrow.NewSchema(target.Fields()[:1], nil))
	assert.Error(t, err)
}

func TestStructOf(t *testing.T) {
	schema, err := ParseDDL("Name STRING, Value BIGINT NOT NULL, At TIMESTAMP")
	require.NoError(t, err)

	dataType := StructOf(schema)
	require.Equal(t, connect.KindStruct, dataType.Kind)
	fields := dataType.GetStruct().Fields
	require.Len(t, fields, 3)
	assert.Equal(t, connect.KindString, fields[0].DataType.Kind)
	assert.Equal(t, connect.KindLong, fields[1].DataType.Kind)
	assert.False(t, fields[1].Nullable)
	assert.Equal(t, connect.KindTimestamp, fields[2].DataType.Kind)
}
