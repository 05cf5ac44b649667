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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// KafkaConfig holds the optional Kafka read.
type KafkaConfig struct {
	Enabled          bool              `yaml:"enabled"`
	BootstrapServers string            `yaml:"bootstrap_servers"`
	Topic            string            `yaml:"topic"`
	StartingOffsets  string            `yaml:"starting_offsets"`
	Options          map[string]string `yaml:"options"`
}

// JDBCConfig holds the optional relational database read. SQL Server URLs are
// the default; jdbc:postgresql URLs work too.
type JDBCConfig struct {
	Enabled  bool              `yaml:"enabled"`
	URL      string            `yaml:"url"`
	Table    string            `yaml:"table"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Options  map[string]string `yaml:"options"`
}

// Query returns the query passed through options, if any. Option keys are
// case-insensitive.
func (c JDBCConfig) Query() string {
	for k, v := range c.Options {
		if strings.EqualFold(k, "query") {
			return v
		}
	}
	return ""
}

// CassandraConfig holds the optional write of the example table. An empty
// Host leaves the connection host to spark.cassandra.connection.host in
// spark_conf, or to the sink's default.
type CassandraConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Host     string            `yaml:"host"`
	Keyspace string            `yaml:"keyspace"`
	Table    string            `yaml:"table"`
	Mode     string            `yaml:"mode"`
	Options  map[string]string `yaml:"options"`
}

type ShowConfig struct {
	NumRows  int  `yaml:"num_rows"`
	Truncate bool `yaml:"truncate"`
}

// Config is the job configuration. Values come from the defaults below, then
// the YAML job file, then environment variables.
type Config struct {
	AppName        string            `yaml:"app_name"`
	Remote         string            `yaml:"remote"`
	SparkConf      map[string]string `yaml:"spark_conf"`
	Kafka          KafkaConfig       `yaml:"kafka"`
	JDBC           JDBCConfig        `yaml:"jdbc"`
	Cassandra      CassandraConfig   `yaml:"cassandra"`
	Show           ShowConfig        `yaml:"show"`
	PushgatewayURL string            `yaml:"pushgateway_url"`
}

// Default returns the configuration of the example job with every connector
// disabled.
func Default() *Config {
	return &Config{
		AppName: "ExampleSparkJob",
		Remote:  "local",
		SparkConf: map[string]string{
			"spark.jars":                 "/opt/spark/jars/*",
			"spark.sql.adaptive.enabled": "true",
		},
		Kafka: KafkaConfig{
			BootstrapServers: "kafka-server:9092",
			Topic:            "topic-name",
			StartingOffsets:  "earliest",
		},
		JDBC: JDBCConfig{
			URL:      "jdbc:sqlserver://server:1433;databaseName=db",
			Table:    "table",
			User:     "user",
			Password: "password",
		},
		Cassandra: CassandraConfig{
			Keyspace: "keyspace",
			Table:    "table",
			Mode:     "append",
		},
		Show: ShowConfig{
			NumRows:  20,
			Truncate: true,
		},
	}
}

// Load reads the job file at path, when path is not empty, over the defaults
// and then applies environment overrides.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read job config: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse job config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppName = getEnv("SPARK_APP_NAME", c.AppName)
	c.Remote = getEnv("SPARK_REMOTE", c.Remote)
	c.PushgatewayURL = getEnv("PUSHGATEWAY_URL", c.PushgatewayURL)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.BootstrapServers = getEnv("KAFKA_BOOTSTRAP_SERVERS", c.Kafka.BootstrapServers)
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.JDBC.Enabled = getEnvBool("JDBC_ENABLED", c.JDBC.Enabled)
	c.JDBC.URL = getEnv("JDBC_URL", c.JDBC.URL)
	c.JDBC.Table = getEnv("JDBC_TABLE", c.JDBC.Table)
	c.JDBC.User = getEnv("JDBC_USER", c.JDBC.User)
	c.JDBC.Password = getEnv("JDBC_PASSWORD", c.JDBC.Password)

	c.Cassandra.Enabled = getEnvBool("CASSANDRA_ENABLED", c.Cassandra.Enabled)
	c.Cassandra.Host = getEnv("CASSANDRA_HOST", c.Cassandra.Host)
	c.Cassandra.Keyspace = getEnv("CASSANDRA_KEYSPACE", c.Cassandra.Keyspace)
	c.Cassandra.Table = getEnv("CASSANDRA_TABLE", c.Cassandra.Table)

	c.Show.NumRows = getEnvInt("SHOW_NUM_ROWS", c.Show.NumRows)
	c.Show.Truncate = getEnvBool("SHOW_TRUNCATE", c.Show.Truncate)
}

// Validate checks the settings of every enabled stage.
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("app_name must not be empty")
	}
	if c.Show.NumRows < 0 {
		return fmt.Errorf("show.num_rows must not be negative, got %d", c.Show.NumRows)
	}
	if c.Kafka.Enabled && (c.Kafka.BootstrapServers == "" || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka needs bootstrap_servers and topic")
	}
	if c.JDBC.Enabled && (c.JDBC.URL == "" || (c.JDBC.Table == "" && c.JDBC.Query() == "")) {
		return fmt.Errorf("jdbc needs url and either table or options.query")
	}
	if c.Cassandra.Enabled && (c.Cassandra.Keyspace == "" || c.Cassandra.Table == "") {
		return fmt.Errorf("cassandra needs keyspace and table")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
