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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"SPARK_APP_NAME", "SPARK_REMOTE", "PUSHGATEWAY_URL",
		"KAFKA_ENABLED", "KAFKA_BOOTSTRAP_SERVERS", "KAFKA_TOPIC",
		"JDBC_ENABLED", "JDBC_URL", "JDBC_TABLE", "JDBC_USER", "JDBC_PASSWORD",
		"CASSANDRA_ENABLED", "CASSANDRA_HOST", "CASSANDRA_KEYSPACE", "CASSANDRA_TABLE",
		"SHOW_NUM_ROWS", "SHOW_TRUNCATE",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "ExampleSparkJob", cfg.AppName)
	assert.Equal(t, "local", cfg.Remote)
	assert.Equal(t, map[string]string{
		"spark.jars":                 "/opt/spark/jars/*",
		"spark.sql.adaptive.enabled": "true",
	}, cfg.SparkConf)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.JDBC.Enabled)
	assert.False(t, cfg.Cassandra.Enabled)
	assert.Equal(t, "kafka-server:9092", cfg.Kafka.BootstrapServers)
	assert.Equal(t, "topic-name", cfg.Kafka.Topic)
	assert.Equal(t, "append", cfg.Cassandra.Mode)
	assert.Empty(t, cfg.Cassandra.Host)
	assert.Equal(t, ShowConfig{NumRows: 20, Truncate: true}, cfg.Show)
}

func TestLoadJDBCQuery(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
jdbc:
  enabled: true
  table: ""
  options:
    Query: select name, value from people
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "select name, value from people", cfg.JDBC.Query())

	_, err = Load(writeFile(t, "jdbc:\n  enabled: true\n  table: \"\"\n"))
	assert.EqualError(t, err, "jdbc needs url and either table or options.query")
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
remote: sc://spark-server:15002
spark_conf:
  spark.sql.shuffle.partitions: "8"
kafka:
  enabled: true
  topic: events
cassandra:
  enabled: true
  keyspace: analytics
  table: people
  options:
    spark.cassandra.output.batch.size.rows: "10"
show:
  num_rows: 5
  truncate: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ExampleSparkJob", cfg.AppName)
	assert.Equal(t, "sc://spark-server:15002", cfg.Remote)
	assert.Equal(t, "8", cfg.SparkConf["spark.sql.shuffle.partitions"])
	assert.Equal(t, "true", cfg.SparkConf["spark.sql.adaptive.enabled"])
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "events", cfg.Kafka.Topic)
	assert.Equal(t, "kafka-server:9092", cfg.Kafka.BootstrapServers)
	assert.Equal(t, "analytics", cfg.Cassandra.Keyspace)
	assert.Equal(t, map[string]string{"spark.cassandra.output.batch.size.rows": "10"}, cfg.Cassandra.Options)
	assert.Equal(t, ShowConfig{NumRows: 5, Truncate: false}, cfg.Show)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "remote: sc://from-file\n")
	t.Setenv("SPARK_REMOTE", "sc://from-env")
	t.Setenv("JDBC_ENABLED", "true")
	t.Setenv("JDBC_URL", "jdbc:postgresql://db:5432/people")
	t.Setenv("SHOW_NUM_ROWS", "3")
	t.Setenv("SHOW_TRUNCATE", "invalid")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sc://from-env", cfg.Remote)
	assert.True(t, cfg.JDBC.Enabled)
	assert.Equal(t, "jdbc:postgresql://db:5432/people", cfg.JDBC.URL)
	assert.Equal(t, 3, cfg.Show.NumRows)
	assert.True(t, cfg.Show.Truncate)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "unknown_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "app_name: \"\"\n"))
	assert.EqualError(t, err, "app_name must not be empty")

	_, err = Load(writeFile(t, "show:\n  num_rows: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "cassandra:\n  enabled: true\n  table: \"\"\n"))
	assert.EqualError(t, err, "cassandra needs keyspace and table")
}

func TestLoadEmptyFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}
