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

package connect

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const serviceName = "spark.connect.SparkConnectService"

const (
	executePlanMethod = "/" + serviceName + "/ExecutePlan"
	analyzePlanMethod = "/" + serviceName + "/AnalyzePlan"
	configMethod      = "/" + serviceName + "/Config"
)

// Codec is a grpc encoding.Codec for the messages in this package. It reports the
// name "proto" so requests carry the content subtype protobuf servers expect.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("connect: cannot marshal %T", v)
	}
	return Marshal(m)
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("connect: cannot unmarshal into %T", v)
	}
	return Unmarshal(data, m)
}

func (Codec) Name() string {
	return "proto"
}

type SparkConnectServiceClient interface {
	ExecutePlan(ctx context.Context, in *ExecutePlanRequest, opts ...grpc.CallOption) (ExecutePlanClient, error)
	AnalyzePlan(ctx context.Context, in *AnalyzePlanRequest, opts ...grpc.CallOption) (*AnalyzePlanResponse, error)
	Config(ctx context.Context, in *ConfigRequest, opts ...grpc.CallOption) (*ConfigResponse, error)
}

type ExecutePlanClient interface {
	Recv() (*ExecutePlanResponse, error)
	grpc.ClientStream
}

type sparkConnectServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSparkConnectServiceClient(cc grpc.ClientConnInterface) SparkConnectServiceClient {
	return &sparkConnectServiceClient{cc: cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
}

var executePlanStreamDesc = grpc.StreamDesc{
	StreamName:    "ExecutePlan",
	ServerStreams: true,
}

func (c *sparkConnectServiceClient) ExecutePlan(ctx context.Context, in *ExecutePlanRequest, opts ...grpc.CallOption) (ExecutePlanClient, error) {
	stream, err := c.cc.NewStream(ctx, &executePlanStreamDesc, executePlanMethod, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &executePlanClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type executePlanClient struct {
	grpc.ClientStream
}

func (x *executePlanClient) Recv() (*ExecutePlanResponse, error) {
	m := new(ExecutePlanResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *sparkConnectServiceClient) AnalyzePlan(ctx context.Context, in *AnalyzePlanRequest, opts ...grpc.CallOption) (*AnalyzePlanResponse, error) {
	out := new(AnalyzePlanResponse)
	if err := c.cc.Invoke(ctx, analyzePlanMethod, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sparkConnectServiceClient) Config(ctx context.Context, in *ConfigRequest, opts ...grpc.CallOption) (*ConfigResponse, error) {
	out := new(ConfigResponse)
	if err := c.cc.Invoke(ctx, configMethod, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

type SparkConnectServiceServer interface {
	ExecutePlan(*ExecutePlanRequest, ExecutePlanServer) error
	AnalyzePlan(context.Context, *AnalyzePlanRequest) (*AnalyzePlanResponse, error)
	Config(context.Context, *ConfigRequest) (*ConfigResponse, error)
}

type ExecutePlanServer interface {
	Send(*ExecutePlanResponse) error
	grpc.ServerStream
}

// ServerOptions returns the options a grpc.Server needs to serve this package's
// messages.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(Codec{})}
}

func RegisterSparkConnectServiceServer(s grpc.ServiceRegistrar, srv SparkConnectServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type executePlanServer struct {
	grpc.ServerStream
}

func (x *executePlanServer) Send(m *ExecutePlanResponse) error {
	return x.ServerStream.SendMsg(m)
}

func executePlanHandler(srv any, stream grpc.ServerStream) error {
	m := new(ExecutePlanRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SparkConnectServiceServer).ExecutePlan(m, &executePlanServer{stream})
}

func analyzePlanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzePlanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SparkConnectServiceServer).AnalyzePlan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzePlanMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SparkConnectServiceServer).AnalyzePlan(ctx, req.(*AnalyzePlanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func configHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ConfigRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SparkConnectServiceServer).Config(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: configMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SparkConnectServiceServer).Config(ctx, req.(*ConfigRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SparkConnectServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzePlan", Handler: analyzePlanHandler},
		{MethodName: "Config", Handler: configHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ExecutePlan", Handler: executePlanHandler, ServerStreams: true},
	},
	Metadata: "spark/connect/base.proto",
}
