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

// Package kafka is a batch Kafka source. A load reads every partition of the
// subscribed topics from the starting offset up to the high watermark observed
// when the load begins.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/columnar"
	"github.com/apache/spark/go/sparkjob/internal/connectors"
)

const Format = "kafka"

const (
	minFetchBytes   = 1
	maxFetchBytes   = 10 << 20
	defaultDeadline = 30 * time.Second
)

// Schema is the fixed row layout of the source.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "key", Type: arrow.BinaryTypes.Binary, Nullable: true},
	{Name: "value", Type: arrow.BinaryTypes.Binary, Nullable: true},
	{Name: "topic", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "partition", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "offset", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "timestamp", Type: columnar.TimestampType, Nullable: true},
	{Name: "timestampType", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// Broker is the part of a Kafka cluster the source talks to.
type Broker interface {
	Partitions(ctx context.Context, topics ...string) ([]kafka.Partition, error)
	// Offsets returns the first offset and the high watermark of a partition.
	Offsets(ctx context.Context, partition kafka.Partition) (int64, int64, error)
	// ReadRange returns the messages in [from, to).
	ReadRange(ctx context.Context, partition kafka.Partition, from, to int64) ([]kafka.Message, error)
	Close() error
}

var dialBroker = func(ctx context.Context, servers []string, clientID string) (Broker, error) {
	dialer := &kafka.Dialer{
		ClientID:  clientID,
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	var errs []error
	for _, addr := range servers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return &cluster{dialer: dialer, conn: conn}, nil
	}
	return nil, fmt.Errorf("failed to reach any bootstrap server: %w", errors.Join(errs...))
}

type Source struct {
	logger *zap.Logger
}

func NewSource(logger *zap.Logger) *Source {
	return &Source{logger: logger.Named("kafka")}
}

func (s *Source) Load(ctx context.Context, options connectors.Options) (*columnar.Table, error) {
	servers, err := options.Require("kafka.bootstrap.servers")
	if err != nil {
		return nil, err
	}
	subscribe, err := options.Require("subscribe")
	if err != nil {
		return nil, err
	}
	starting := strings.ToLower(options.GetOrDefault("startingOffsets", "earliest"))
	if starting != "earliest" && starting != "latest" {
		return nil, &connectors.InvalidOptionError{Key: "startingOffsets", Reason: fmt.Sprintf("%q is not earliest or latest", starting)}
	}
	if ending := strings.ToLower(options.GetOrDefault("endingOffsets", "latest")); ending != "latest" {
		return nil, &connectors.InvalidOptionError{Key: "endingOffsets", Reason: "only latest is supported for batch reads"}
	}

	broker, err := dialBroker(ctx, splitList(servers), options.GetOrDefault("kafka.client.id", "spark-kafka-source"))
	if err != nil {
		return nil, err
	}
	defer broker.Close()

	topics := splitList(subscribe)
	partitions, err := broker.Partitions(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %v: %w", topics, err)
	}
	sort.Slice(partitions, func(i, j int) bool {
		if partitions[i].Topic != partitions[j].Topic {
			return partitions[i].Topic < partitions[j].Topic
		}
		return partitions[i].ID < partitions[j].ID
	})

	table := &columnar.Table{Schema: Schema}
	for _, p := range partitions {
		first, last, err := broker.Offsets(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read offsets of %s-%d: %w", p.Topic, p.ID, err)
		}
		from := first
		if starting == "latest" {
			from = last
		}
		if from >= last {
			continue
		}
		messages, err := broker.ReadRange(ctx, p, from, last)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s-%d: %w", p.Topic, p.ID, err)
		}
		s.logger.Debug("read partition",
			zap.String("topic", p.Topic),
			zap.Int("partition", p.ID),
			zap.Int64("from", from),
			zap.Int64("to", last),
			zap.Int("messages", len(messages)),
		)
		for _, m := range messages {
			table.Rows = append(table.Rows, messageRow(m))
		}
	}
	return table, nil
}

func messageRow(m kafka.Message) []any {
	var key, value any
	if m.Key != nil {
		key = m.Key
	}
	if m.Value != nil {
		value = m.Value
	}
	var ts any
	if !m.Time.IsZero() {
		ts = m.Time.UTC()
	}
	// kafka-go does not expose the timestamp type; CreateTime is the default.
	return []any{key, value, m.Topic, int32(m.Partition), m.Offset, ts, int32(0)}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type cluster struct {
	dialer *kafka.Dialer
	conn   *kafka.Conn
}

func (c *cluster) Partitions(ctx context.Context, topics ...string) ([]kafka.Partition, error) {
	if err := c.conn.SetDeadline(deadline(ctx)); err != nil {
		return nil, err
	}
	return c.conn.ReadPartitions(topics...)
}

func (c *cluster) leader(ctx context.Context, p kafka.Partition) (*kafka.Conn, error) {
	addr := net.JoinHostPort(p.Leader.Host, strconv.Itoa(p.Leader.Port))
	conn, err := c.dialer.DialLeader(ctx, "tcp", addr, p.Topic, p.ID)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(deadline(ctx)); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *cluster) Offsets(ctx context.Context, p kafka.Partition) (int64, int64, error) {
	conn, err := c.leader(ctx, p)
	if err != nil {
		return 0, 0, err
	}
	defer conn.Close()
	return conn.ReadOffsets()
}

func (c *cluster) ReadRange(ctx context.Context, p kafka.Partition, from, to int64) ([]kafka.Message, error) {
	conn, err := c.leader(ctx, p)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Seek(from, kafka.SeekAbsolute); err != nil {
		return nil, err
	}
	var messages []kafka.Message
	offset := from
	for offset < to {
		batch := conn.ReadBatch(minFetchBytes, maxFetchBytes)
		read := 0
		for offset < to {
			m, err := batch.ReadMessage()
			if err != nil {
				break
			}
			messages = append(messages, m)
			offset = m.Offset + 1
			read++
		}
		if err := batch.Close(); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		// Compacted or transactional partitions can end before the watermark.
		if read == 0 {
			break
		}
	}
	return messages, nil
}

func (c *cluster) Close() error {
	return c.conn.Close()
}

func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(defaultDeadline)
}
