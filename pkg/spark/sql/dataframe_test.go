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
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
)

func TestShowArrowBatchData(t *testing.T) {
	arrowFields := []arrow.Field{
		{
			Name: "show_string",
			Type: &arrow.StringType{},
		},
	}
	arrowSchema := arrow.NewSchema(arrowFields, nil)
	data, err := columnar.Encode(&columnar.Table{
		Schema: arrowSchema,
		Rows:   [][]any{{"str1a\nstr1b"}, {"str2"}},
	})
	require.Nil(t, err)

	var buf bytes.Buffer
	err = showArrowBatchData(&buf, data)
	assert.Nil(t, err)
	assert.Equal(t, "str1a\nstr1b\nstr2\n", buf.String())
}

func TestShowArrowBatchDataRejectsNonStringColumns(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64}}, nil)
	data, err := columnar.Encode(&columnar.Table{Schema: schema, Rows: [][]any{{int64(1)}}})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, showArrowBatchData(&buf, data))
}

func newLocalSession(t *testing.T, out *bytes.Buffer) Session {
	t.Helper()
	spark, err := SparkSession.Builder.
		Remote("local").
		AppName("ExampleSparkJob").
		Output(out).
		Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, spark.Stop()) })
	return spark
}

func peopleDataFrame(t *testing.T, spark Session) DataFrame {
	t.Helper()
	df, err := spark.CreateDataFrame([][]any{{"Alice", 1}, {"Bob", 2}, {"Charlie", 3}}, "Name", "Value")
	require.NoError(t, err)
	return df
}

func TestShow(t *testing.T) {
	var out bytes.Buffer
	spark := newLocalSession(t, &out)

	err := peopleDataFrame(t, spark).Show(context.Background(), 20, true)
	require.NoError(t, err)

	expected := "" +
		"+-------+-----+\n" +
		"|   Name|Value|\n" +
		"+-------+-----+\n" +
		"|  Alice|    1|\n" +
		"|    Bob|    2|\n" +
		"|Charlie|    3|\n" +
		"+-------+-----+\n" +
		"\n"
	assert.Equal(t, expected, out.String())
}

func TestShowWithFewerRows(t *testing.T) {
	var out bytes.Buffer
	spark := newLocalSession(t, &out)

	err := peopleDataFrame(t, spark).Show(context.Background(), 2, false)
	require.NoError(t, err)

	expected := "" +
		"+-----+-----+\n" +
		"|Name |Value|\n" +
		"+-----+-----+\n" +
		"|Alice|1    |\n" +
		"|Bob  |2    |\n" +
		"+-----+-----+\n" +
		"only showing top 2 rows\n" +
		"\n"
	assert.Equal(t, expected, out.String())
}

func TestShowWithHugeRowCount(t *testing.T) {
	var out bytes.Buffer
	spark := newLocalSession(t, &out)

	err := peopleDataFrame(t, spark).Show(context.Background(), math.MaxInt, true)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "|Charlie|    3|\n")
	assert.NotContains(t, out.String(), "only showing")
}

func TestClampRows(t *testing.T) {
	assert.Equal(t, int32(20), clampRows(20))
	assert.Equal(t, int32(math.MaxInt32), clampRows(math.MaxInt))
	assert.Equal(t, int32(math.MinInt32), clampRows(math.MinInt))
}

func TestCollect(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	rows, err := peopleDataFrame(t, spark).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	values, err := rows[2].Values()
	require.NoError(t, err)
	assert.Equal(t, []any{"Charlie", int64(3)}, values)

	schema, err := rows[0].Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Value"}, schema.FieldNames())
}

func TestLimit(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	rows, err := peopleDataFrame(t, spark).Limit(1).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	values, err := rows[0].Values()
	require.NoError(t, err)
	assert.Equal(t, []any{"Alice", int64(1)}, values)
}

func TestSchema(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	schema, err := peopleDataFrame(t, spark).Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &StructType{Fields: []StructField{
		{Name: "Name", DataType: StringType{}, Nullable: true},
		{Name: "Value", DataType: LongType{}, Nullable: true},
	}}, schema)
	assert.Equal(t, "Long", schema.Fields[1].DataType.TypeName())
}

func TestCreateDataFrameWithSchema(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})
	schema := &StructType{Fields: []StructField{
		{Name: "Name", DataType: StringType{}, Nullable: false},
		{Name: "Value", DataType: IntegerType{}, Nullable: true},
	}}

	df, err := spark.CreateDataFrameWithSchema([][]any{{"Alice", 1}, {"Bob", nil}}, schema)
	require.NoError(t, err)

	actual, err := df.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema, actual)

	rows, err := df.Collect(context.Background())
	require.NoError(t, err)
	values, err := rows[1].Values()
	require.NoError(t, err)
	assert.Equal(t, []any{"Bob", nil}, values)

	_, err = spark.CreateDataFrameWithSchema([][]any{{"x"}}, &StructType{Fields: []StructField{{Name: "x", DataType: UnsupportedType{}}}})
	assert.Error(t, err)
}

func TestCreateDataFrameDefaultColumnNames(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	df, err := spark.CreateDataFrame([][]any{{"a", true}})
	require.NoError(t, err)
	schema, err := df.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"_1", "_2"}, schema.FieldNames())

	_, err = spark.CreateDataFrame(nil)
	assert.Error(t, err)
	_, err = spark.CreateDataFrame([][]any{{"a", 1}}, "only")
	assert.Error(t, err)
}

func TestReadUnknownFormat(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	_, err := spark.Read().Load()
	assert.Error(t, err)

	df, err := spark.Read().Format("parquet").Option("path", "/tmp/x").Load()
	require.NoError(t, err)
	_, err = df.Collect(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestWrite(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})
	df := peopleDataFrame(t, spark)

	err := df.Write().Format("org.apache.spark.sql.cassandra").Mode("sometimes").Save(context.Background())
	assert.EqualError(t, err, "unknown save mode: sometimes")

	err = df.Write().Format("cassandra").Mode("append").Save(context.Background(), "a", "b")
	assert.Error(t, err)

	err = df.Write().Format("parquet").Mode("overwrite").Save(context.Background(), "/tmp/out")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = df.Write().
		Format("org.apache.spark.sql.cassandra").
		Options(map[string]string{"keyspace": "keyspace_name"}).
		Mode("append").
		Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, err.Error(), "table")
}

func TestParseSaveMode(t *testing.T) {
	for input, expected := range map[string]string{
		"":              "unspecified",
		"Append":        "append",
		"overwrite":     "overwrite",
		"error":         "errorifexists",
		"errorifexists": "errorifexists",
		"ignore":        "ignore",
	} {
		mode, err := parseSaveMode(input)
		require.NoError(t, err)
		assert.Equal(t, expected, mode.String())
	}
}

func TestSqlIsUnimplementedLocally(t *testing.T) {
	spark := newLocalSession(t, &bytes.Buffer{})

	_, err := spark.Sql(context.Background(), "select 'apple' as word")
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestNewPlanIdIncrements(t *testing.T) {
	first := *newPlanId()
	second := *newPlanId()
	assert.Equal(t, first+1, second)
}
