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
	"fmt"

	"github.com/apache/spark/go/sparkjob/internal/connect"
)

// RuntimeConfig reads and writes the session configuration on the server.
type RuntimeConfig interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	GetAll(ctx context.Context, prefix string) (map[string]string, error)
}

type runtimeConfigImpl struct {
	sparkSession *sparkSessionImpl
}

func (c *runtimeConfigImpl) Set(ctx context.Context, key, value string) error {
	_, err := c.sparkSession.config(ctx, &connect.ConfigOperation{
		Set: []*connect.KeyValue{{Key: key, Value: &value}},
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (c *runtimeConfigImpl) Get(ctx context.Context, key string) (string, error) {
	response, err := c.sparkSession.config(ctx, &connect.ConfigOperation{
		Get: []string{key},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	for _, pair := range response.Pairs {
		if pair.Key == key && pair.Value != nil {
			return *pair.Value, nil
		}
	}
	return "", fmt.Errorf("config %s has no value", key)
}

func (c *runtimeConfigImpl) GetAll(ctx context.Context, prefix string) (map[string]string, error) {
	getAll := &connect.ConfigGetAll{}
	if prefix != "" {
		getAll.Prefix = &prefix
	}
	response, err := c.sparkSession.config(ctx, &connect.ConfigOperation{GetAll: getAll})
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	result := make(map[string]string, len(response.Pairs))
	for _, pair := range response.Pairs {
		if pair.Value != nil {
			result[pair.Key] = *pair.Value
		}
	}
	return result, nil
}
