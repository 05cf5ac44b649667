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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemote(t *testing.T) {
	testCases := []struct {
		input   string
		local   bool
		address string
		params  map[string]string
	}{
		{input: "local", local: true, params: map[string]string{}},
		{input: "local[4]", local: true, params: map[string]string{}},
		{input: "local[*]", local: true, params: map[string]string{}},
		{input: "sc://spark-server", address: "spark-server:15002", params: map[string]string{}},
		{input: "sc://spark-server:8080", address: "spark-server:8080", params: map[string]string{}},
		{
			input:   "sc://spark-server:8080/;user_id=alice;token=abc",
			address: "spark-server:8080",
			params:  map[string]string{"user_id": "alice", "token": "abc"},
		},
		{input: "sc://[::1]", address: "[::1]:15002", params: map[string]string{}},
		{input: "sc://[::1]:9000/;user_id=bob", address: "[::1]:9000", params: map[string]string{"user_id": "bob"}},
		{input: "localhost:15002", address: "localhost:15002", params: map[string]string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			r, err := parseRemote(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.input, r.raw)
			assert.Equal(t, tc.local, r.local)
			assert.Equal(t, tc.address, r.address)
			assert.Equal(t, tc.params, r.params)
		})
	}
}

func TestParseRemoteDefaults(t *testing.T) {
	t.Setenv("SPARK_REMOTE", "")
	r, err := parseRemote("")
	require.NoError(t, err)
	assert.True(t, r.local)
	assert.Equal(t, "local", r.raw)

	t.Setenv("SPARK_REMOTE", "sc://from-env")
	r, err = parseRemote("")
	require.NoError(t, err)
	assert.False(t, r.local)
	assert.Equal(t, "from-env:15002", r.address)
}

func TestParseRemoteErrors(t *testing.T) {
	for _, input := range []string{
		"sc://",
		"sc://host/;user_id",
		"local[x]",
		"no-port",
	} {
		_, err := parseRemote(input)
		assert.Error(t, err, input)
	}
}
