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

// Plan is spark.connect.Plan: either a relation to evaluate or a command to run.
type Plan struct {
	Root    *Relation
	Command *Command
}

func (p *Plan) appendWire(b []byte) []byte {
	switch {
	case p.Root != nil:
		b = appendMessage(b, 1, p.Root)
	case p.Command != nil:
		b = appendMessage(b, 2, p.Command)
	}
	return b
}

func (p *Plan) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			p.Root, err = unmarshalInto[Relation](f.bytes)
		case 2:
			p.Command, err = unmarshalInto[Command](f.bytes)
		}
		return err
	})
}

type UserContext struct {
	UserId   string
	UserName string
}

func (u *UserContext) appendWire(b []byte) []byte {
	b = appendString(b, 1, u.UserId)
	return appendString(b, 2, u.UserName)
}

func (u *UserContext) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			u.UserId = string(f.bytes)
		case 2:
			u.UserName = string(f.bytes)
		}
		return nil
	})
}

type ExecutePlanRequest struct {
	SessionId   string
	UserContext *UserContext
	Plan        *Plan
	ClientType  string
}

func (r *ExecutePlanRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	if r.UserContext != nil {
		b = appendMessage(b, 2, r.UserContext)
	}
	if r.Plan != nil {
		b = appendMessage(b, 3, r.Plan)
	}
	return appendString(b, 4, r.ClientType)
}

func (r *ExecutePlanRequest) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			r.UserContext, err = unmarshalInto[UserContext](f.bytes)
		case 3:
			r.Plan, err = unmarshalInto[Plan](f.bytes)
		case 4:
			r.ClientType = string(f.bytes)
		}
		return err
	})
}

// ExecutePlanResponse carries at most one of ArrowBatch and SqlCommandResult.
// Schema may accompany any response.
type ExecutePlanResponse struct {
	SessionId        string
	ArrowBatch       *ArrowBatch
	SqlCommandResult *SqlCommandResult
	Schema           *DataType
}

func (r *ExecutePlanResponse) GetArrowBatch() *ArrowBatch {
	if r == nil {
		return nil
	}
	return r.ArrowBatch
}

func (r *ExecutePlanResponse) GetSqlCommandResult() *SqlCommandResult {
	if r == nil {
		return nil
	}
	return r.SqlCommandResult
}

func (r *ExecutePlanResponse) GetSchema() *DataType {
	if r == nil {
		return nil
	}
	return r.Schema
}

func (r *ExecutePlanResponse) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	switch {
	case r.ArrowBatch != nil:
		b = appendMessage(b, 2, r.ArrowBatch)
	case r.SqlCommandResult != nil:
		b = appendMessage(b, 5, r.SqlCommandResult)
	}
	if r.Schema != nil {
		b = appendMessage(b, 7, r.Schema)
	}
	return b
}

func (r *ExecutePlanResponse) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			r.ArrowBatch, err = unmarshalInto[ArrowBatch](f.bytes)
		case 5:
			r.SqlCommandResult, err = unmarshalInto[SqlCommandResult](f.bytes)
		case 7:
			r.Schema, err = unmarshalInto[DataType](f.bytes)
		}
		return err
	})
}

type ArrowBatch struct {
	RowCount int64
	Data     []byte
}

func (a *ArrowBatch) appendWire(b []byte) []byte {
	b = appendVarint(b, 1, uint64(a.RowCount))
	return appendBytes(b, 2, a.Data)
}

func (a *ArrowBatch) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			a.RowCount = int64(f.varint)
		case 2:
			a.Data = append([]byte{}, f.bytes...)
		}
		return nil
	})
}

type SqlCommandResult struct {
	Relation *Relation
}

func (s *SqlCommandResult) GetRelation() *Relation {
	if s == nil {
		return nil
	}
	return s.Relation
}

func (s *SqlCommandResult) appendWire(b []byte) []byte {
	if s.Relation != nil {
		b = appendMessage(b, 1, s.Relation)
	}
	return b
}

func (s *SqlCommandResult) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var err error
		s.Relation, err = unmarshalInto[Relation](f.bytes)
		return err
	})
}

// AnalyzePlanRequest asks for either the schema of a plan or the server version.
type AnalyzePlanRequest struct {
	SessionId    string
	UserContext  *UserContext
	ClientType   string
	Schema       *AnalyzeSchema
	SparkVersion *AnalyzeSparkVersion
}

type AnalyzeSchema struct {
	Plan *Plan
}

func (a *AnalyzeSchema) appendWire(b []byte) []byte {
	if a.Plan != nil {
		b = appendMessage(b, 1, a.Plan)
	}
	return b
}

func (a *AnalyzeSchema) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		var err error
		a.Plan, err = unmarshalInto[Plan](f.bytes)
		return err
	})
}

type AnalyzeSparkVersion struct{}

func (*AnalyzeSparkVersion) appendWire(b []byte) []byte { return b }

func (*AnalyzeSparkVersion) unmarshalWire([]byte) error { return nil }

func (r *AnalyzePlanRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	if r.UserContext != nil {
		b = appendMessage(b, 2, r.UserContext)
	}
	b = appendString(b, 3, r.ClientType)
	switch {
	case r.Schema != nil:
		b = appendMessage(b, 4, r.Schema)
	case r.SparkVersion != nil:
		b = appendMessage(b, 10, r.SparkVersion)
	}
	return b
}

func (r *AnalyzePlanRequest) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			r.UserContext, err = unmarshalInto[UserContext](f.bytes)
		case 3:
			r.ClientType = string(f.bytes)
		case 4:
			r.Schema, err = unmarshalInto[AnalyzeSchema](f.bytes)
		case 10:
			r.SparkVersion = &AnalyzeSparkVersion{}
		}
		return err
	})
}

type AnalyzePlanResponse struct {
	SessionId    string
	Schema       *DataType
	SparkVersion string
}

func (r *AnalyzePlanResponse) GetSchema() *DataType {
	if r == nil {
		return nil
	}
	return r.Schema
}

func (r *AnalyzePlanResponse) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	if r.Schema != nil {
		var inner []byte
		inner = appendMessage(inner, 1, r.Schema)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	if r.SparkVersion != "" {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendBytes(b, appendString(nil, 1, r.SparkVersion))
	}
	return b
}

func (r *AnalyzePlanResponse) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			return walk(f.bytes, func(inner field) error {
				if inner.num != 1 {
					return nil
				}
				var err error
				r.Schema, err = unmarshalInto[DataType](inner.bytes)
				return err
			})
		case 8:
			return walk(f.bytes, func(inner field) error {
				if inner.num == 1 {
					r.SparkVersion = string(inner.bytes)
				}
				return nil
			})
		}
		return nil
	})
}

// ConfigRequest runs one operation against the session's runtime config.
type ConfigRequest struct {
	SessionId   string
	UserContext *UserContext
	Operation   *ConfigOperation
	ClientType  string
}

func (r *ConfigRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	if r.UserContext != nil {
		b = appendMessage(b, 2, r.UserContext)
	}
	if r.Operation != nil {
		b = appendMessage(b, 3, r.Operation)
	}
	return appendString(b, 4, r.ClientType)
}

func (r *ConfigRequest) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			r.UserContext, err = unmarshalInto[UserContext](f.bytes)
		case 3:
			r.Operation, err = unmarshalInto[ConfigOperation](f.bytes)
		case 4:
			r.ClientType = string(f.bytes)
		}
		return err
	})
}

// ConfigOperation sets exactly one of Set, Get and GetAll.
type ConfigOperation struct {
	Set    []*KeyValue
	Get    []string
	GetAll *ConfigGetAll
}

type ConfigGetAll struct {
	Prefix *string
}

func (g *ConfigGetAll) appendWire(b []byte) []byte {
	if g.Prefix != nil {
		b = appendRawString(b, 1, *g.Prefix)
	}
	return b
}

func (g *ConfigGetAll) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			p := string(f.bytes)
			g.Prefix = &p
		}
		return nil
	})
}

func (o *ConfigOperation) appendWire(b []byte) []byte {
	switch {
	case o.Set != nil:
		var inner []byte
		for _, kv := range o.Set {
			inner = appendMessage(inner, 1, kv)
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case o.Get != nil:
		var inner []byte
		for _, k := range o.Get {
			inner = appendRawString(inner, 1, k)
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case o.GetAll != nil:
		b = appendMessage(b, 5, o.GetAll)
	}
	return b
}

func (o *ConfigOperation) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			o.Set = []*KeyValue{}
			return walk(f.bytes, func(inner field) error {
				if inner.num != 1 {
					return nil
				}
				kv, err := unmarshalInto[KeyValue](inner.bytes)
				if err != nil {
					return err
				}
				o.Set = append(o.Set, kv)
				return nil
			})
		case 2:
			o.Get = []string{}
			return walk(f.bytes, func(inner field) error {
				if inner.num == 1 {
					o.Get = append(o.Get, string(inner.bytes))
				}
				return nil
			})
		case 5:
			var err error
			o.GetAll, err = unmarshalInto[ConfigGetAll](f.bytes)
			return err
		}
		return nil
	})
}

// KeyValue has an optional value; a nil Value means the key is unset.
type KeyValue struct {
	Key   string
	Value *string
}

// GetValue returns the value, or "" when it is unset.
func (kv *KeyValue) GetValue() string {
	if kv == nil || kv.Value == nil {
		return ""
	}
	return *kv.Value
}

func (kv *KeyValue) appendWire(b []byte) []byte {
	b = appendRawString(b, 1, kv.Key)
	if kv.Value != nil {
		b = appendRawString(b, 2, *kv.Value)
	}
	return b
}

func (kv *KeyValue) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			kv.Key = string(f.bytes)
		case 2:
			v := string(f.bytes)
			kv.Value = &v
		}
		return nil
	})
}

type ConfigResponse struct {
	SessionId string
	Pairs     []*KeyValue
	Warnings  []string
}

func (r *ConfigResponse) appendWire(b []byte) []byte {
	b = appendString(b, 1, r.SessionId)
	for _, kv := range r.Pairs {
		b = appendMessage(b, 2, kv)
	}
	for _, w := range r.Warnings {
		b = appendRawString(b, 3, w)
	}
	return b
}

func (r *ConfigResponse) unmarshalWire(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.SessionId = string(f.bytes)
		case 2:
			kv, err := unmarshalInto[KeyValue](f.bytes)
			if err != nil {
				return err
			}
			r.Pairs = append(r.Pairs, kv)
		case 3:
			r.Warnings = append(r.Warnings, string(f.bytes))
		}
		return nil
	})
}
