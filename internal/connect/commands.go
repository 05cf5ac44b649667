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

// Command is spark.connect.Command. At most one field is set.
type Command struct {
	WriteOperation *WriteOperation
	SqlCommand     *SqlCommand
}

func (c *Command) appendWire(b []byte) []byte {
	switch {
	case c.WriteOperation != nil:
		b = appendMessage(b, 2, c.WriteOperation)
	case c.SqlCommand != nil:
		b = appendMessage(b, 5, c.SqlCommand)
	}
	return b
}

func (c *Command) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 2:
			c.WriteOperation, err = unmarshalInto[WriteOperation](f.bytes)
		case 5:
			c.SqlCommand, err = unmarshalInto[SqlCommand](f.bytes)
		}
		return err
	})
}

type SqlCommand struct {
	Sql string
}

func (s *SqlCommand) appendWire(b []byte) []byte {
	return appendString(b, 1, s.Sql)
}

func (s *SqlCommand) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			s.Sql = string(f.bytes)
		}
		return nil
	})
}

type SaveMode int32

const (
	SaveModeUnspecified SaveMode = iota
	SaveModeAppend
	SaveModeOverwrite
	SaveModeErrorIfExists
	SaveModeIgnore
)

func (m SaveMode) String() string {
	switch m {
	case SaveModeAppend:
		return "append"
	case SaveModeOverwrite:
		return "overwrite"
	case SaveModeErrorIfExists:
		return "errorifexists"
	case SaveModeIgnore:
		return "ignore"
	default:
		return "unspecified"
	}
}

// WriteOperation saves Input through the data source named by Source. Only the
// path variant of save_type is carried.
type WriteOperation struct {
	Input   *Relation
	Source  string
	Path    string
	Mode    SaveMode
	Options map[string]string
}

func (w *WriteOperation) appendWire(b []byte) []byte {
	if w.Input != nil {
		b = appendMessage(b, 1, w.Input)
	}
	b = appendString(b, 2, w.Source)
	b = appendString(b, 3, w.Path)
	b = appendVarint(b, 5, uint64(w.Mode))
	return appendStringMap(b, 9, w.Options)
}

func (w *WriteOperation) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			w.Input, err = unmarshalInto[Relation](f.bytes)
		case 2:
			w.Source = string(f.bytes)
		case 3:
			w.Path = string(f.bytes)
		case 5:
			if f.typ != protowire.VarintType {
				return wireTypeError("WriteOperation", f)
			}
			w.Mode = SaveMode(f.varint)
		case 9:
			if w.Options == nil {
				w.Options = make(map[string]string)
			}
			err = consumeMapEntry(f.bytes, w.Options)
		}
		return err
	})
}
