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

	"github.com/apache/arrow/go/v12/arrow"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
)

type StructField struct {
	Name     string
	DataType DataType
	Nullable bool
}

type StructType struct {
	Fields []StructField
}

// FieldNames returns the names of the fields in order.
func (t *StructType) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

func (t *StructType) toArrow() (*arrow.Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	fields := make([]arrow.Field, len(t.Fields))
	for i, f := range t.Fields {
		arrowType, err := arrowTypeOf(f.DataType)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowTypeOf(dataType DataType) (arrow.DataType, error) {
	switch dataType.(type) {
	case NullType:
		return arrow.Null, nil
	case BinaryType:
		return arrow.BinaryTypes.Binary, nil
	case BooleanType:
		return arrow.FixedWidthTypes.Boolean, nil
	case IntegerType:
		return arrow.PrimitiveTypes.Int32, nil
	case LongType:
		return arrow.PrimitiveTypes.Int64, nil
	case DoubleType:
		return arrow.PrimitiveTypes.Float64, nil
	case StringType:
		return arrow.BinaryTypes.String, nil
	case DateType:
		return arrow.FixedWidthTypes.Date32, nil
	case TimestampType:
		return columnar.TimestampType, nil
	default:
		return nil, fmt.Errorf("unsupported data type %v", dataType)
	}
}
