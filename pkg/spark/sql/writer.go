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
	"strings"

	"github.com/apache/spark/go/sparkjob/internal/connect"
)

// DataFrameWriter saves a DataFrame to an external data sink.
type DataFrameWriter interface {
	Format(source string) DataFrameWriter
	Option(key, value string) DataFrameWriter
	Options(options map[string]string) DataFrameWriter
	// Mode is one of append, overwrite, error, errorifexists or ignore.
	Mode(saveMode string) DataFrameWriter
	Save(ctx context.Context, path ...string) error
}

type dataFrameWriterImpl struct {
	sparkSession *sparkSessionImpl
	relation     *connect.Relation
	source       string
	saveMode     string
	options      map[string]string
}

func (w *dataFrameWriterImpl) Format(source string) DataFrameWriter {
	w.source = source
	return w
}

func (w *dataFrameWriterImpl) Option(key, value string) DataFrameWriter {
	if w.options == nil {
		w.options = map[string]string{}
	}
	w.options[key] = value
	return w
}

func (w *dataFrameWriterImpl) Options(options map[string]string) DataFrameWriter {
	for k, v := range options {
		w.Option(k, v)
	}
	return w
}

func (w *dataFrameWriterImpl) Mode(saveMode string) DataFrameWriter {
	w.saveMode = saveMode
	return w
}

func parseSaveMode(saveMode string) (connect.SaveMode, error) {
	switch strings.ToLower(saveMode) {
	case "":
		return connect.SaveModeUnspecified, nil
	case "append":
		return connect.SaveModeAppend, nil
	case "overwrite":
		return connect.SaveModeOverwrite, nil
	case "error", "errorifexists", "default":
		return connect.SaveModeErrorIfExists, nil
	case "ignore":
		return connect.SaveModeIgnore, nil
	default:
		return connect.SaveModeUnspecified, fmt.Errorf("unknown save mode: %s", saveMode)
	}
}

func (w *dataFrameWriterImpl) Save(ctx context.Context, path ...string) error {
	mode, err := parseSaveMode(w.saveMode)
	if err != nil {
		return err
	}
	if len(path) > 1 {
		return fmt.Errorf("save takes at most one path, got %d", len(path))
	}
	operation := &connect.WriteOperation{
		Input:   w.relation,
		Source:  w.source,
		Mode:    mode,
		Options: w.options,
	}
	if len(path) == 1 {
		operation.Path = path[0]
	}
	plan := &connect.Plan{
		Command: &connect.Command{
			WriteOperation: operation,
		},
	}

	responseClient, err := w.sparkSession.executePlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("failed to save dataframe: %w", err)
	}
	for {
		_, err := responseClient.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to save dataframe: %w", err)
		}
	}
}
