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

package connectors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsAreCaseInsensitive(t *testing.T) {
	options := NewOptions(
		map[string]string{"spark.cassandra.connection.host": "conf-host", "dbTable": "people"},
		map[string]string{"Spark.Cassandra.Connection.Host": "option-host"},
	)

	host, ok := options.Get("spark.cassandra.connection.host")
	assert.True(t, ok)
	assert.Equal(t, "option-host", host)
	assert.Equal(t, "people", options.GetOrDefault("DBTABLE", ""))
	assert.Equal(t, "fallback", options.GetOrDefault("missing", "fallback"))
}

func TestOptionsRequire(t *testing.T) {
	options := NewOptions(map[string]string{"url": "jdbc:postgresql://db/app", "empty": ""})

	url, err := options.Require("url")
	require.NoError(t, err)
	assert.Equal(t, "jdbc:postgresql://db/app", url)

	_, err = options.Require("empty")
	var invalid *InvalidOptionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "empty", invalid.Key)
}

func TestOptionsTypedAccessors(t *testing.T) {
	options := NewOptions(map[string]string{"size": "64", "bad": "x", "confirm.truncate": "true"})

	size, err := options.Int("size", 1)
	require.NoError(t, err)
	assert.Equal(t, 64, size)

	size, err = options.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, size)

	_, err = options.Int("bad", 0)
	assert.Error(t, err)

	confirm, err := options.Bool("confirm.truncate", false)
	require.NoError(t, err)
	assert.True(t, confirm)

	_, err = options.Bool("bad", false)
	assert.Error(t, err)
}
