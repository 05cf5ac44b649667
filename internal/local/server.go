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

package local

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/apache/spark/go/sparkjob/internal/connect"
)

// Server serves an Engine on a loopback port.
type Server struct {
	server   *grpc.Server
	listener net.Listener
	done     chan error
}

// Start listens on 127.0.0.1 with a random port and serves engine on it until
// Stop is called.
func Start(engine *Engine) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	opts := append(connect.ServerOptions(),
		grpc.ChainUnaryInterceptor(unaryLogger(engine.logger)),
		grpc.ChainStreamInterceptor(streamLogger(engine.logger)),
	)
	server := grpc.NewServer(opts...)
	connect.RegisterSparkConnectServiceServer(server, engine)

	s := &Server{server: server, listener: listener, done: make(chan error, 1)}
	go func() {
		s.done <- server.Serve(listener)
	}()
	engine.logger.Debug("local engine started", zap.String("addr", s.Addr()))
	return s, nil
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop waits for in-flight calls to finish and shuts the server down.
func (s *Server) Stop() error {
	s.server.GracefulStop()
	return <-s.done
}

func unaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		)
		return resp, err
	}
}

func streamLogger(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logger.Debug("rpc",
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		)
		return err
	}
}
