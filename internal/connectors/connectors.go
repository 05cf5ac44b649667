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

// Package connectors defines the data sources and sinks the embedded engine reads
// from and writes to. Implementations live in the subpackages.
package connectors

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connect"
)

type Source interface {
	Load(ctx context.Context, options Options) (*columnar.Table, error)
}

type Sink interface {
	Save(ctx context.Context, table *columnar.Table, mode connect.SaveMode, options Options) error
}

// Options are data source options. Keys are case-insensitive, as in Spark.
type Options map[string]string

// NewOptions merges the given maps; later maps win.
func NewOptions(maps ...map[string]string) Options {
	options := Options{}
	for _, m := range maps {
		for k, v := range m {
			options[strings.ToLower(k)] = v
		}
	}
	return options
}

func (o Options) Get(key string) (string, bool) {
	v, ok := o[strings.ToLower(key)]
	return v, ok
}

func (o Options) GetOrDefault(key, def string) string {
	if v, ok := o.Get(key); ok && v != "" {
		return v
	}
	return def
}

// Require returns the option's value or an InvalidOptionError.
func (o Options) Require(key string) (string, error) {
	v, ok := o.Get(key)
	if !ok || v == "" {
		return "", &InvalidOptionError{Key: key, Reason: "option is required"}
	}
	return v, nil
}

func (o Options) Int(key string, def int) (int, error) {
	v, ok := o.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &InvalidOptionError{Key: key, Reason: fmt.Sprintf("%q is not an integer", v)}
	}
	return i, nil
}

func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &InvalidOptionError{Key: key, Reason: fmt.Sprintf("%q is not a boolean", v)}
	}
	return b, nil
}

type InvalidOptionError struct {
	Key    string
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Key, e.Reason)
}
