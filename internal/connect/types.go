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

package connect

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DataTypeKind is the field number of the kind oneof in spark.connect.DataType.
type DataTypeKind int32

const (
	KindNull         DataTypeKind = 1
	KindBinary       DataTypeKind = 2
	KindBoolean      DataTypeKind = 3
	KindByte         DataTypeKind = 4
	KindShort        DataTypeKind = 5
	KindInteger      DataTypeKind = 6
	KindLong         DataTypeKind = 7
	KindFloat        DataTypeKind = 8
	KindDouble       DataTypeKind = 9
	KindDecimal      DataTypeKind = 10
	KindString       DataTypeKind = 11
	KindChar         DataTypeKind = 12
	KindVarChar      DataTypeKind = 13
	KindDate         DataTypeKind = 14
	KindTimestamp    DataTypeKind = 15
	KindTimestampNTZ DataTypeKind = 16
	KindArray        DataTypeKind = 20
	KindStruct       DataTypeKind = 21
	KindMap          DataTypeKind = 22
)

func (k DataTypeKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBinary:
		return "binary"
	case KindBoolean:
		return "boolean"
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindInteger:
		return "integer"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindChar:
		return "char"
	case KindVarChar:
		return "varchar"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampNTZ:
		return "timestamp_ntz"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// DataType is spark.connect.DataType. Scalar kinds are carried by Kind alone;
// their parameters (decimal precision, char length) are not modelled.
type DataType struct {
	Kind   DataTypeKind
	Struct *DataTypeStruct
}

func (d *DataType) GetStruct() *DataTypeStruct {
	if d == nil {
		return nil
	}
	return d.Struct
}

func (d *DataType) appendWire(b []byte) []byte {
	if d.Kind == KindStruct && d.Struct != nil {
		return appendMessage(b, protowire.Number(KindStruct), d.Struct)
	}
	if d.Kind == 0 {
		return b
	}
	b = protowire.AppendTag(b, protowire.Number(d.Kind), protowire.BytesType)
	return protowire.AppendBytes(b, nil)
}

func (d *DataType) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		d.Kind = DataTypeKind(f.num)
		if d.Kind == KindStruct {
			var err error
			d.Struct, err = unmarshalInto[DataTypeStruct](f.bytes)
			return err
		}
		return nil
	})
}

type DataTypeStruct struct {
	Fields []*StructField
}

func (s *DataTypeStruct) appendWire(b []byte) []byte {
	for _, f := range s.Fields {
		b = appendMessage(b, 1, f)
	}
	return b
}

func (s *DataTypeStruct) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		sf, err := unmarshalInto[StructField](f.bytes)
		if err != nil {
			return err
		}
		s.Fields = append(s.Fields, sf)
		return nil
	})
}

type StructField struct {
	Name     string
	DataType *DataType
	Nullable bool
}

func (s *StructField) appendWire(b []byte) []byte {
	b = appendString(b, 1, s.Name)
	if s.DataType != nil {
		b = appendMessage(b, 2, s.DataType)
	}
	return appendBool(b, 3, s.Nullable)
}

func (s *StructField) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.Name = string(f.bytes)
		case 2:
			s.DataType, err = unmarshalInto[DataType](f.bytes)
		case 3:
			s.Nullable = f.varint != 0
		}
		return err
	})
}
