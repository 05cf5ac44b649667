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

import "google.golang.org/protobuf/encoding/protowire"

// Relation is spark.connect.Relation. At most one of the rel_type fields is set.
type Relation struct {
	Common        *RelationCommon
	Read          *Read
	Limit         *Limit
	Sql           *SQL
	LocalRelation *LocalRelation
	ShowString    *ShowString
}

func (r *Relation) appendWire(b []byte) []byte {
	if r.Common != nil {
		b = appendMessage(b, 1, r.Common)
	}
	switch {
	case r.Read != nil:
		b = appendMessage(b, 2, r.Read)
	case r.Limit != nil:
		b = appendMessage(b, 8, r.Limit)
	case r.Sql != nil:
		b = appendMessage(b, 10, r.Sql)
	case r.LocalRelation != nil:
		b = appendMessage(b, 11, r.LocalRelation)
	case r.ShowString != nil:
		b = appendMessage(b, 20, r.ShowString)
	}
	return b
}

func (r *Relation) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		var err error
		switch f.num {
		case 1:
			r.Common, err = unmarshalInto[RelationCommon](f.bytes)
		case 2:
			r.Read, err = unmarshalInto[Read](f.bytes)
		case 8:
			r.Limit, err = unmarshalInto[Limit](f.bytes)
		case 10:
			r.Sql, err = unmarshalInto[SQL](f.bytes)
		case 11:
			r.LocalRelation, err = unmarshalInto[LocalRelation](f.bytes)
		case 20:
			r.ShowString, err = unmarshalInto[ShowString](f.bytes)
		}
		return err
	})
}

type RelationCommon struct {
	SourceInfo string
	PlanId     *int64
}

func (r *RelationCommon) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SourceInfo)
	if r.PlanId != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*r.PlanId))
	}
	return b
}

func (r *RelationCommon) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.SourceInfo = string(f.bytes)
		case 2:
			id := int64(f.varint)
			r.PlanId = &id
		}
		return nil
	})
}

// Read only carries the data_source variant; named tables are not used.
type Read struct {
	DataSource *DataSource
}

func (r *Read) appendWire(b []byte) []byte {
	if r.DataSource != nil {
		b = appendMessage(b, 2, r.DataSource)
	}
	return b
}

func (r *Read) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num != 2 {
			return nil
		}
		if f.typ != protowire.BytesType {
			return wireTypeError("Read", f)
		}
		var err error
		r.DataSource, err = unmarshalInto[DataSource](f.bytes)
		return err
	})
}

type DataSource struct {
	Format     string
	Schema     string
	Options    map[string]string
	Paths      []string
	Predicates []string
}

func (d *DataSource) appendWire(b []byte) []byte {
	b = appendString(b, 1, d.Format)
	b = appendString(b, 2, d.Schema)
	b = appendStringMap(b, 3, d.Options)
	for _, p := range d.Paths {
		b = appendRawString(b, 4, p)
	}
	for _, p := range d.Predicates {
		b = appendRawString(b, 5, p)
	}
	return b
}

func (d *DataSource) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			d.Format = string(f.bytes)
		case 2:
			d.Schema = string(f.bytes)
		case 3:
			if d.Options == nil {
				d.Options = make(map[string]string)
			}
			return consumeMapEntry(f.bytes, d.Options)
		case 4:
			d.Paths = append(d.Paths, string(f.bytes))
		case 5:
			d.Predicates = append(d.Predicates, string(f.bytes))
		}
		return nil
	})
}

type SQL struct {
	Query string
}

func (s *SQL) appendWire(b []byte) []byte {
	return appendString(b, 1, s.Query)
}

func (s *SQL) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			s.Query = string(f.bytes)
		}
		return nil
	})
}

// LocalRelation holds rows inline as an Arrow IPC stream. Schema is an optional
// DDL or JSON type string that overrides the Arrow schema's names and types.
type LocalRelation struct {
	Data   []byte
	Schema string
}

func (l *LocalRelation) appendWire(b []byte) []byte {
	b = appendBytes(b, 1, l.Data)
	return appendString(b, 2, l.Schema)
}

func (l *LocalRelation) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			l.Data = append([]byte{}, f.bytes...)
		case 2:
			l.Schema = string(f.bytes)
		}
		return nil
	})
}

type Limit struct {
	Input *Relation
	Limit int32
}

func (l *Limit) appendWire(b []byte) []byte {
	if l.Input != nil {
		b = appendMessage(b, 1, l.Input)
	}
	return appendVarint(b, 2, uint64(int64(l.Limit)))
}

func (l *Limit) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			l.Input, err = unmarshalInto[Relation](f.bytes)
		case 2:
			l.Limit = int32(f.varint)
		}
		return err
	})
}

type ShowString struct {
	Input    *Relation
	NumRows  int32
	Truncate int32
	Vertical bool
}

func (s *ShowString) appendWire(b []byte) []byte {
	if s.Input != nil {
		b = appendMessage(b, 1, s.Input)
	}
	b = appendVarint(b, 2, uint64(int64(s.NumRows)))
	b = appendVarint(b, 3, uint64(int64(s.Truncate)))
	return appendBool(b, 4, s.Vertical)
}

func (s *ShowString) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			s.Input, err = unmarshalInto[Relation](f.bytes)
		case 2:
			s.NumRows = int32(f.varint)
		case 3:
			s.Truncate = int32(f.varint)
		case 4:
			s.Vertical = f.varint != 0
		}
		return err
	})
}
