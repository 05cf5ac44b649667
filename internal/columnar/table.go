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

// Package columnar converts row tables to and from the Arrow IPC stream format used
// for data on the Spark Connect wire.
package columnar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/ipc"
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Table is a row-oriented table. Cells hold string, []byte, bool, int32, int64,
// float64, time.Time or nil.
type Table struct {
	Schema *arrow.Schema
	Rows   [][]any
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) ColumnNames() []string {
	fields := t.Schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Head returns a table sharing t's schema with at most n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Schema: t.Schema, Rows: t.Rows[:n]}
}

var TimestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// Encode writes t as a single-batch Arrow IPC stream.
func Encode(t *Table) ([]byte, error) {
	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, t.Schema)
	defer builder.Release()

	numColumns := len(t.Schema.Fields())
	for rowIndex, row := range t.Rows {
		if len(row) != numColumns {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns", rowIndex, len(row), numColumns)
		}
		for columnIndex, v := range row {
			if err := appendValue(builder.Field(columnIndex), v); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", rowIndex, t.Schema.Field(columnIndex).Name, err)
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(t.Schema), ipc.WithAllocator(mem))
	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("failed to write arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close arrow writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads every record batch of an Arrow IPC stream into one table.
func Decode(data []byte) (*Table, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer reader.Release()

	table := &Table{Schema: reader.Schema()}
	for reader.Next() {
		rows, err := recordRows(reader.Record())
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, rows...)
	}
	if err := reader.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read arrow: %w", err)
	}
	return table, nil
}

func recordRows(record arrow.Record) ([][]any, error) {
	numColumns := int(record.NumCols())
	numRows := int(record.NumRows())
	rows := make([][]any, numRows)
	for i := range rows {
		rows[i] = make([]any, numColumns)
	}
	for columnIndex := 0; columnIndex < numColumns; columnIndex++ {
		column := record.Column(columnIndex)
		for rowIndex := 0; rowIndex < numRows; rowIndex++ {
			v, err := columnValue(column, rowIndex)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", columnIndex, err)
			}
			rows[rowIndex][columnIndex] = v
		}
	}
	return rows, nil
}

func columnValue(column arrow.Array, i int) (any, error) {
	if column.IsNull(i) {
		return nil, nil
	}
	switch c := column.(type) {
	case *array.String:
		return c.Value(i), nil
	case *array.LargeString:
		return c.Value(i), nil
	case *array.Binary:
		return append([]byte{}, c.Value(i)...), nil
	case *array.Boolean:
		return c.Value(i), nil
	case *array.Int8:
		return int32(c.Value(i)), nil
	case *array.Int16:
		return int32(c.Value(i)), nil
	case *array.Int32:
		return c.Value(i), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Float32:
		return float64(c.Value(i)), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.Date32:
		return time.Unix(int64(c.Value(i))*24*60*60, 0).UTC(), nil
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return timestampToTime(int64(c.Value(i)), unit), nil
	case *array.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported arrow data type %s", column.DataType())
	}
}

func timestampToTime(v int64, unit arrow.TimeUnit) time.Time {
	switch unit {
	case arrow.Second:
		return time.Unix(v, 0).UTC()
	case arrow.Millisecond:
		return time.UnixMilli(v).UTC()
	case arrow.Nanosecond:
		return time.Unix(0, v).UTC()
	default:
		return time.UnixMicro(v).UTC()
	}
}

func appendValue(builder array.Builder, v any) error {
	if v == nil {
		builder.AppendNull()
		return nil
	}
	switch b := builder.(type) {
	case *array.StringBuilder:
		switch s := v.(type) {
		case string:
			b.Append(s)
		case []byte:
			b.Append(string(s))
		default:
			return fmt.Errorf("cannot store %T as string", v)
		}
	case *array.BinaryBuilder:
		switch s := v.(type) {
		case []byte:
			b.Append(s)
		case string:
			b.AppendString(s)
		default:
			return fmt.Errorf("cannot store %T as binary", v)
		}
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot store %T as boolean", v)
		}
		b.Append(x)
	case *array.Int8Builder:
		x, err := toBoundedInt(v, math.MinInt8, math.MaxInt8)
		if err != nil {
			return err
		}
		b.Append(int8(x))
	case *array.Int16Builder:
		x, err := toBoundedInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		b.Append(int16(x))
	case *array.Int32Builder:
		x, err := toBoundedInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		b.Append(int32(x))
	case *array.Int64Builder:
		x, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			b.Append(x)
		case float32:
			b.Append(float64(x))
		default:
			i, err := toInt64(v)
			if err != nil {
				return fmt.Errorf("cannot store %T as double", v)
			}
			b.Append(float64(i))
		}
	case *array.Float32Builder:
		switch x := v.(type) {
		case float32:
			b.Append(x)
		case float64:
			b.Append(float32(x))
		default:
			return fmt.Errorf("cannot store %T as float", v)
		}
	case *array.Date32Builder:
		x, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("cannot store %T as date", v)
		}
		b.Append(arrow.Date32FromTime(x))
	case *array.TimestampBuilder:
		x, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("cannot store %T as timestamp", v)
		}
		b.Append(arrow.Timestamp(x.UnixMicro()))
	case *array.NullBuilder:
		b.AppendNull()
	default:
		return fmt.Errorf("unsupported arrow builder %T", builder)
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("cannot store %T as an integer", v)
	}
}

func toBoundedInt(v any, min, max int64) (int64, error) {
	x, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if x < min || x > max {
		return 0, fmt.Errorf("value %d is out of range [%d, %d]", x, min, max)
	}
	return x, nil
}

// InferSchema derives a nullable schema from the first non-nil value of each
// column. Go ints infer as 64-bit longs; columns of only nils get the null type.
func InferSchema(rows [][]any, columns []string) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.Null, Nullable: true}
	}
	for rowIndex, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d columns", rowIndex, len(row), len(columns))
		}
		for i, v := range row {
			if v == nil || fields[i].Type.ID() != arrow.NULL {
				continue
			}
			t, err := inferType(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", columns[i], err)
			}
			fields[i].Type = t
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

func inferType(v any) (arrow.DataType, error) {
	switch v.(type) {
	case string:
		return arrow.BinaryTypes.String, nil
	case []byte:
		return arrow.BinaryTypes.Binary, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int, int64, uint32:
		return arrow.PrimitiveTypes.Int64, nil
	case int8, int16, int32, uint8, uint16:
		return arrow.PrimitiveTypes.Int32, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case time.Time:
		return TimestampType, nil
	default:
		return nil, fmt.Errorf("cannot infer a type for %T", v)
	}
}
