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
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/spark/go/sparkjob/internal/connect"
)

// DataTypeOf maps an Arrow type to the Spark type it carries on the wire.
// Types without a mapping return a zero Kind.
func DataTypeOf(t arrow.DataType) *connect.DataType {
	var kind connect.DataTypeKind
	switch t.ID() {
	case arrow.NULL:
		kind = connect.KindNull
	case arrow.STRING, arrow.LARGE_STRING:
		kind = connect.KindString
	case arrow.BINARY, arrow.LARGE_BINARY:
		kind = connect.KindBinary
	case arrow.BOOL:
		kind = connect.KindBoolean
	case arrow.INT8:
		kind = connect.KindByte
	case arrow.INT16:
		kind = connect.KindShort
	case arrow.INT32:
		kind = connect.KindInteger
	case arrow.INT64:
		kind = connect.KindLong
	case arrow.FLOAT32:
		kind = connect.KindFloat
	case arrow.FLOAT64:
		kind = connect.KindDouble
	case arrow.DATE32:
		kind = connect.KindDate
	case arrow.TIMESTAMP:
		kind = connect.KindTimestamp
	}
	return &connect.DataType{Kind: kind}
}

// StructOf maps an Arrow schema to a Spark struct type.
func StructOf(schema *arrow.Schema) *connect.DataType {
	fields := make([]*connect.StructField, len(schema.Fields()))
	for i, f := range schema.Fields() {
		fields[i] = &connect.StructField{
			Name:     f.Name,
			DataType: DataTypeOf(f.Type),
			Nullable: f.Nullable,
		}
	}
	return &connect.DataType{
		Kind:   connect.KindStruct,
		Struct: &connect.DataTypeStruct{Fields: fields},
	}
}

var ddlTypes = map[string]arrow.DataType{
	"STRING":    arrow.BinaryTypes.String,
	"VARCHAR":   arrow.BinaryTypes.String,
	"CHAR":      arrow.BinaryTypes.String,
	"BINARY":    arrow.BinaryTypes.Binary,
	"BOOLEAN":   arrow.FixedWidthTypes.Boolean,
	"TINYINT":   arrow.PrimitiveTypes.Int8,
	"BYTE":      arrow.PrimitiveTypes.Int8,
	"SMALLINT":  arrow.PrimitiveTypes.Int16,
	"SHORT":     arrow.PrimitiveTypes.Int16,
	"INT":       arrow.PrimitiveTypes.Int32,
	"INTEGER":   arrow.PrimitiveTypes.Int32,
	"BIGINT":    arrow.PrimitiveTypes.Int64,
	"LONG":      arrow.PrimitiveTypes.Int64,
	"FLOAT":     arrow.PrimitiveTypes.Float32,
	"REAL":      arrow.PrimitiveTypes.Float32,
	"DOUBLE":    arrow.PrimitiveTypes.Float64,
	"DATE":      arrow.FixedWidthTypes.Date32,
	"TIMESTAMP": TimestampType,
	"VOID":      arrow.Null,
}

var ddlNames = map[arrow.Type]string{
	arrow.STRING:    "STRING",
	arrow.BINARY:    "BINARY",
	arrow.BOOL:      "BOOLEAN",
	arrow.INT8:      "TINYINT",
	arrow.INT16:     "SMALLINT",
	arrow.INT32:     "INT",
	arrow.INT64:     "BIGINT",
	arrow.FLOAT32:   "FLOAT",
	arrow.FLOAT64:   "DOUBLE",
	arrow.DATE32:    "DATE",
	arrow.TIMESTAMP: "TIMESTAMP",
	arrow.NULL:      "VOID",
}

// ParseDDL parses a Spark DDL column list such as "Name STRING, Value BIGINT NOT NULL".
// Column names may be quoted with backticks. Parameterized types like VARCHAR(10)
// keep only their base type.
func ParseDDL(ddl string) (*arrow.Schema, error) {
	ddl = strings.TrimSpace(ddl)
	if ddl == "" {
		return nil, fmt.Errorf("empty schema string")
	}
	var fields []arrow.Field
	for _, column := range splitColumns(ddl) {
		column = strings.TrimSpace(column)
		name, rest, err := splitName(column)
		if err != nil {
			return nil, err
		}
		words := strings.Fields(strings.ToUpper(rest))
		if len(words) == 0 {
			return nil, fmt.Errorf("column %s has no type", name)
		}
		typeName := words[0]
		if i := strings.IndexByte(typeName, '('); i >= 0 {
			typeName = typeName[:i]
		}
		t, ok := ddlTypes[typeName]
		if !ok {
			return nil, fmt.Errorf("unsupported type %s for column %s", words[0], name)
		}
		nullable := true
		if len(words) >= 3 && words[len(words)-2] == "NOT" && words[len(words)-1] == "NULL" {
			nullable = false
		}
		fields = append(fields, arrow.Field{Name: name, Type: t, Nullable: nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}

// splitColumns splits on commas outside parentheses and backticks.
func splitColumns(ddl string) []string {
	var (
		columns []string
		depth   int
		quoted  bool
		start   int
	)
	for i, r := range ddl {
		switch {
		case r == '`':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			columns = append(columns, ddl[start:i])
			start = i + 1
		}
	}
	return append(columns, ddl[start:])
}

func splitName(column string) (string, string, error) {
	if strings.HasPrefix(column, "`") {
		end := strings.Index(column[1:], "`")
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quoted name in %q", column)
		}
		return column[1 : end+1], column[end+2:], nil
	}
	name, rest, ok := strings.Cut(column, " ")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid column definition %q", column)
	}
	return name, rest, nil
}

// FormatDDL renders schema as a DDL column list with backtick-quoted names.
func FormatDDL(schema *arrow.Schema) (string, error) {
	columns := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		typeName, ok := ddlNames[f.Type.ID()]
		if !ok {
			return "", fmt.Errorf("column %s: no DDL name for %s", f.Name, f.Type)
		}
		column := "`" + f.Name + "` " + typeName
		if !f.Nullable {
			column += " NOT NULL"
		}
		columns[i] = column
	}
	return strings.Join(columns, ", "), nil
}

// ApplySchema renames and retypes t's columns to match schema. Values are
// converted where the Arrow builders accept them.
func ApplySchema(t *Table, schema *arrow.Schema) (*Table, error) {
	if len(schema.Fields()) != len(t.Schema.Fields()) {
		return nil, fmt.Errorf("schema has %d columns, data has %d", len(schema.Fields()), len(t.Schema.Fields()))
	}
	converted := &Table{Schema: schema, Rows: t.Rows}
	// Encode validates every value against the target types.
	data, err := Encode(converted)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
