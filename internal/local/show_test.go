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
	"math"
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
)

func people(t *testing.T) *columnar.Table {
	t.Helper()
	rows := [][]any{{"Alice", int64(1)}, {"Bob", int64(2)}, {"Charlie", int64(3)}}
	schema, err := columnar.InferSchema(rows, []string{"Name", "Value"})
	require.NoError(t, err)
	return &columnar.Table{Schema: schema, Rows: rows}
}

func TestShowString(t *testing.T) {
	expected := "" +
		"+-------+-----+\n" +
		"|   Name|Value|\n" +
		"+-------+-----+\n" +
		"|  Alice|    1|\n" +
		"|    Bob|    2|\n" +
		"|Charlie|    3|\n" +
		"+-------+-----+\n"
	assert.Equal(t, expected, showString(people(t), 20, 20))
}

func TestShowStringLeftAlignedWithoutTruncation(t *testing.T) {
	expected := "" +
		"+-------+-----+\n" +
		"|Name   |Value|\n" +
		"+-------+-----+\n" +
		"|Alice  |1    |\n" +
		"|Bob    |2    |\n" +
		"|Charlie|3    |\n" +
		"+-------+-----+\n"
	assert.Equal(t, expected, showString(people(t), 20, 0))
}

func TestShowStringFooter(t *testing.T) {
	expected := "" +
		"+-----+-----+\n" +
		"| Name|Value|\n" +
		"+-----+-----+\n" +
		"|Alice|    1|\n" +
		"+-----+-----+\n" +
		"only showing top 1 row\n"
	assert.Equal(t, expected, showString(people(t), 1, 20))

	assert.Contains(t, showString(people(t), 2, 20), "only showing top 2 rows\n")
	assert.NotContains(t, showString(people(t), 3, 20), "only showing")

	expected = "" +
		"+----+-----+\n" +
		"|Name|Value|\n" +
		"+----+-----+\n" +
		"+----+-----+\n" +
		"only showing top 0 rows\n"
	assert.Equal(t, expected, showString(people(t), 0, 20))
}

func TestShowStringTruncatesCells(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true}}, nil)
	table := &columnar.Table{Schema: schema, Rows: [][]any{{"abcdefghijklmnopqrstuvwxyz"}}}

	assert.Equal(t, ""+
		"+--------------------+\n"+
		"|                   s|\n"+
		"+--------------------+\n"+
		"|abcdefghijklmnopq...|\n"+
		"+--------------------+\n", showString(table, 20, 20))

	assert.Equal(t, ""+
		"+---+\n"+
		"|  s|\n"+
		"+---+\n"+
		"|abc|\n"+
		"+---+\n", showString(table, 20, 3))
}

func TestShowStringWideCharactersAndNulls(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
	table := &columnar.Table{Schema: schema, Rows: [][]any{{"日本語", nil}, {"a\tb", int64(10)}}}

	assert.Equal(t, ""+
		"+------+----+\n"+
		"|     x|   n|\n"+
		"+------+----+\n"+
		"|日本語|null|\n"+
		"|  a\\tb|  10|\n"+
		"+------+----+\n", showString(table, 20, 20))
}

func TestFormatCell(t *testing.T) {
	ts := time.Date(2023, 4, 13, 10, 30, 0, 120000000, time.UTC)
	testCases := []struct {
		value    any
		dataType arrow.DataType
		expected string
	}{
		{nil, arrow.BinaryTypes.String, "null"},
		{[]byte{0x0a, 0xff}, arrow.BinaryTypes.Binary, "[0A FF]"},
		{[]byte{}, arrow.BinaryTypes.Binary, "[]"},
		{true, arrow.FixedWidthTypes.Boolean, "true"},
		{int32(-7), arrow.PrimitiveTypes.Int32, "-7"},
		{ts, columnar.TimestampType, "2023-04-13 10:30:00.12"},
		{ts.Truncate(time.Second), columnar.TimestampType, "2023-04-13 10:30:00"},
		{ts, arrow.FixedWidthTypes.Date32, "2023-04-13"},
		{1.0, arrow.PrimitiveTypes.Float64, "1.0"},
		{1.5, arrow.PrimitiveTypes.Float64, "1.5"},
		{0.001, arrow.PrimitiveTypes.Float64, "0.001"},
		{1e7, arrow.PrimitiveTypes.Float64, "1.0E7"},
		{1.25e-5, arrow.PrimitiveTypes.Float64, "1.25E-5"},
		{-0.0, arrow.PrimitiveTypes.Float64, "0.0"},
		{math.NaN(), arrow.PrimitiveTypes.Float64, "NaN"},
		{math.Inf(-1), arrow.PrimitiveTypes.Float64, "-Infinity"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, formatCell(tc.value, tc.dataType))
	}
}
