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

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/apache/spark/go/sparkjob/internal/connect"
)

var (
	remote = flag.String("remote", "localhost:15002", "the remote address of Spark Connect server to connect to")
	prefix = flag.String("prefix", "", "only list config keys with this prefix")
)

func main() {
	flag.Parse()
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	conn, err := grpc.NewClient(*remote, opts...)
	if err != nil {
		log.Fatalf("Failed: %s", err.Error())
	}
	defer conn.Close()

	client := connect.NewSparkConnectServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	getAll := &connect.ConfigGetAll{}
	if *prefix != "" {
		getAll.Prefix = prefix
	}
	configRequest := connect.ConfigRequest{
		SessionId: uuid.NewString(),
		Operation: &connect.ConfigOperation{
			GetAll: getAll,
		},
	}
	configResponse, err := client.Config(ctx, &configRequest)
	if err != nil {
		log.Fatalf("Failed: %s", err.Error())
	}

	for _, pair := range configResponse.Pairs {
		log.Printf("%s = %s", pair.Key, pair.GetValue())
	}
	for _, warning := range configResponse.Warnings {
		log.Printf("warning: %s", warning)
	}
}
