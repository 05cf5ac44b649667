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
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/apache/arrow/go/v12/arrow"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connect"
)

type DataFrame interface {
	Show(ctx context.Context, numRows int, truncate bool) error
	Schema(ctx context.Context) (*StructType, error)
	Collect(ctx context.Context) ([]Row, error)
	Limit(n int32) DataFrame
	Write() DataFrameWriter
}

type dataFrameImpl struct {
	sparkSession *sparkSessionImpl
	relation     *connect.Relation
}

func (df *dataFrameImpl) Show(ctx context.Context, numRows int, truncate bool) error {
	truncateValue := 0
	if truncate {
		truncateValue = 20
	}
	vertical := false

	plan := &connect.Plan{
		Root: &connect.Relation{
			Common: &connect.RelationCommon{
				PlanId: newPlanId(),
			},
			ShowString: &connect.ShowString{
				Input:    df.relation,
				NumRows:  clampRows(numRows),
				Truncate: int32(truncateValue),
				Vertical: vertical,
			},
		},
	}

	responseClient, err := df.sparkSession.executePlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to show dataframe: %w", err)
	}

	shown := false
	for {
		response, err := responseClient.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to receive show response: %w", err)
		}
		arrowBatch := response.GetArrowBatch()
		if arrowBatch == nil {
			continue
		}
		if err := showArrowBatchData(df.sparkSession.output, arrowBatch.Data); err != nil {
			return err
		}
		shown = true
	}
	if !shown {
		return fmt.Errorf("did not get arrow batch in response")
	}
	return nil
}

// clampRows caps a row count at the largest value the ShowString relation
// carries.
func clampRows(n int) int32 {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int32(n)
}

func (df *dataFrameImpl) Schema(ctx context.Context) (*StructType, error) {
	response, err := df.sparkSession.analyzePlan(ctx, df.createPlan())
	if err != nil {
		return nil, fmt.Errorf("failed to analyze plan: %w", err)
	}
	return convertProtoDataTypeToStructType(response.GetSchema())
}

func (df *dataFrameImpl) Collect(ctx context.Context) ([]Row, error) {
	responseClient, err := df.sparkSession.executePlan(ctx, df.createPlan())
	if err != nil {
		return nil, fmt.Errorf("failed to execute plan: %w", err)
	}

	var schema *StructType
	var rows []Row

	for {
		response, err := responseClient.Recv()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to receive plan execution response: %w", err)
		}

		dataType := response.GetSchema()
		if dataType != nil {
			schema, err = convertProtoDataTypeToStructType(dataType)
			if err != nil {
				return nil, err
			}
			continue
		}

		arrowBatch := response.GetArrowBatch()
		if arrowBatch == nil {
			continue
		}
		batchRows, err := readArrowBatchData(arrowBatch.Data, schema)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batchRows...)
	}
}

func (df *dataFrameImpl) Limit(n int32) DataFrame {
	return &dataFrameImpl{
		sparkSession: df.sparkSession,
		relation: &connect.Relation{
			Common: &connect.RelationCommon{
				PlanId: newPlanId(),
			},
			Limit: &connect.Limit{
				Input: df.relation,
				Limit: n,
			},
		},
	}
}

func (df *dataFrameImpl) Write() DataFrameWriter {
	return &dataFrameWriterImpl{
		sparkSession: df.sparkSession,
		relation:     df.relation,
	}
}

func (df *dataFrameImpl) createPlan() *connect.Plan {
	root := *df.relation
	root.Common = &connect.RelationCommon{
		PlanId: newPlanId(),
	}
	return &connect.Plan{
		Root: &root,
	}
}

var planIdCounter atomic.Int64

func newPlanId() *int64 {
	id := planIdCounter.Add(1) - 1
	return &id
}

func showArrowBatchData(w io.Writer, data []byte) error {
	table, err := columnar.Decode(data)
	if err != nil {
		return fmt.Errorf("failed to read arrow: %w", err)
	}
	if len(table.Schema.Fields()) != 1 || table.Schema.Field(0).Type.ID() != arrow.STRING {
		return fmt.Errorf("arrow column type is not string")
	}
	for _, row := range table.Rows {
		if _, err := fmt.Fprintln(w, row[0]); err != nil {
			return err
		}
	}
	return nil
}

func readArrowBatchData(data []byte, schema *StructType) ([]Row, error) {
	table, err := columnar.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow: %w", err)
	}
	rows := make([]Row, 0, table.NumRows())
	for _, values := range table.Rows {
		rows = append(rows, &GenericRowWithSchema{
			schema: schema,
			values: values,
		})
	}
	return rows, nil
}

func convertProtoDataTypeToStructType(input *connect.DataType) (*StructType, error) {
	dataTypeStruct := input.GetStruct()
	if dataTypeStruct == nil {
		return nil, fmt.Errorf("schema is not a struct type")
	}
	return &StructType{
		Fields: convertProtoStructFields(dataTypeStruct.Fields),
	}, nil
}

func convertProtoStructFields(input []*connect.StructField) []StructField {
	result := make([]StructField, len(input))
	for i, f := range input {
		result[i] = convertProtoStructField(f)
	}
	return result
}

func convertProtoStructField(field *connect.StructField) StructField {
	return StructField{
		Name:     field.Name,
		DataType: convertProtoDataTypeToDataType(field.DataType),
		Nullable: field.Nullable,
	}
}

func convertProtoDataTypeToDataType(input *connect.DataType) DataType {
	if input == nil {
		return UnsupportedType{}
	}
	switch input.Kind {
	case connect.KindNull:
		return NullType{}
	case connect.KindBinary:
		return BinaryType{}
	case connect.KindBoolean:
		return BooleanType{}
	case connect.KindInteger:
		return IntegerType{}
	case connect.KindLong:
		return LongType{}
	case connect.KindDouble:
		return DoubleType{}
	case connect.KindString:
		return StringType{}
	case connect.KindDate:
		return DateType{}
	case connect.KindTimestamp:
		return TimestampType{}
	default:
		return UnsupportedType{
			TypeInfo: input.Kind,
		}
	}
}
