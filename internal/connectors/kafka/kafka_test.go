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

package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apache/spark/go/sparkjob/internal/connectors"
)

type fakeBroker struct {
	servers    []string
	clientID   string
	partitions []kafka.Partition
	offsets    map[int][2]int64
	messages   map[int][]kafka.Message
	ranges     map[int][2]int64
	closed     bool
}

func (f *fakeBroker) Partitions(ctx context.Context, topics ...string) ([]kafka.Partition, error) {
	var out []kafka.Partition
	for _, p := range f.partitions {
		for _, topic := range topics {
			if p.Topic == topic {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeBroker) Offsets(ctx context.Context, p kafka.Partition) (int64, int64, error) {
	o, ok := f.offsets[p.ID]
	if !ok {
		return 0, 0, errors.New("unknown partition")
	}
	return o[0], o[1], nil
}

func (f *fakeBroker) ReadRange(ctx context.Context, p kafka.Partition, from, to int64) ([]kafka.Message, error) {
	f.ranges[p.ID] = [2]int64{from, to}
	var out []kafka.Message
	for _, m := range f.messages[p.ID] {
		if m.Offset >= from && m.Offset < to {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeBroker) Close() error {
	f.closed = true
	return nil
}

func withBroker(t *testing.T, broker *fakeBroker) {
	t.Helper()
	original := dialBroker
	dialBroker = func(ctx context.Context, servers []string, clientID string) (Broker, error) {
		broker.servers = servers
		broker.clientID = clientID
		return broker, nil
	}
	t.Cleanup(func() { dialBroker = original })
}

func newFakeBroker() *fakeBroker {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &fakeBroker{
		partitions: []kafka.Partition{
			{Topic: "topic-name", ID: 1},
			{Topic: "other", ID: 7},
			{Topic: "topic-name", ID: 0},
		},
		offsets: map[int][2]int64{0: {0, 2}, 1: {5, 6}, 7: {0, 1}},
		messages: map[int][]kafka.Message{
			0: {
				{Topic: "topic-name", Partition: 0, Offset: 0, Key: []byte("k0"), Value: []byte("v0"), Time: at},
				{Topic: "topic-name", Partition: 0, Offset: 1, Value: []byte("v1"), Time: at.Add(time.Second)},
			},
			1: {
				{Topic: "topic-name", Partition: 1, Offset: 5, Key: []byte("k5"), Value: []byte("v5"), Time: at},
			},
		},
		ranges: map[int][2]int64{},
	}
}

func TestLoadEarliest(t *testing.T) {
	broker := newFakeBroker()
	withBroker(t, broker)

	table, err := NewSource(zap.NewNop()).Load(context.Background(), connectors.NewOptions(map[string]string{
		"kafka.bootstrap.servers": "kafka-server:9092, kafka-2:9092",
		"subscribe":               "topic-name",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-server:9092", "kafka-2:9092"}, broker.servers)
	assert.Equal(t, "spark-kafka-source", broker.clientID)
	assert.True(t, broker.closed)
	assert.Equal(t, Schema, table.Schema)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, [][]any{
		{[]byte("k0"), []byte("v0"), "topic-name", int32(0), int64(0), at, int32(0)},
		{nil, []byte("v1"), "topic-name", int32(0), int64(1), at.Add(time.Second), int32(0)},
		{[]byte("k5"), []byte("v5"), "topic-name", int32(1), int64(5), at, int32(0)},
	}, table.Rows)
	assert.Equal(t, map[int][2]int64{0: {0, 2}, 1: {5, 6}}, broker.ranges)
}

func TestLoadLatestReadsNothing(t *testing.T) {
	broker := newFakeBroker()
	withBroker(t, broker)

	table, err := NewSource(zap.NewNop()).Load(context.Background(), connectors.NewOptions(map[string]string{
		"kafka.bootstrap.servers": "kafka-server:9092",
		"subscribe":               "topic-name,other",
		"startingOffsets":         "LATEST",
		"kafka.client.id":         "job",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, table.NumRows())
	assert.Empty(t, broker.ranges)
	assert.Equal(t, "job", broker.clientID)
}

func TestLoadValidatesOptions(t *testing.T) {
	withBroker(t, newFakeBroker())
	source := NewSource(zap.NewNop())

	testCases := []struct {
		name    string
		options map[string]string
		key     string
	}{
		{"missing servers", map[string]string{"subscribe": "t"}, "kafka.bootstrap.servers"},
		{"missing subscribe", map[string]string{"kafka.bootstrap.servers": "b:9092"}, "subscribe"},
		{"bad starting offsets", map[string]string{"kafka.bootstrap.servers": "b:9092", "subscribe": "t", "startingOffsets": "{}"}, "startingOffsets"},
		{"bad ending offsets", map[string]string{"kafka.bootstrap.servers": "b:9092", "subscribe": "t", "endingOffsets": "earliest"}, "endingOffsets"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := source.Load(context.Background(), connectors.NewOptions(tc.options))
			var invalid *connectors.InvalidOptionError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.key, invalid.Key)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
	assert.Nil(t, splitList(""))
}
