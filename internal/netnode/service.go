package netnode

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
)

// jsonCodec replaces gRPC's default protobuf codec with plain JSON, the
// same substitution tinySQL's cmd/server/main.go registers so it can
// expose a gRPC service without a .proto/protoc step.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)       { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error  { return json.Unmarshal(data, v) }

// GeneratorServer is the service a netnode exposes: remote execution of a
// single operation, and a reset call for nemesis-driven fault injection.
type GeneratorServer interface {
	Execute(context.Context, *ExecuteRequest) (*ExecuteResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
}

const serviceName = "isocheck.Generator"

// RegisterGeneratorServer registers srv's methods against a manually
// built grpc.ServiceDesc, following registerTinySQLServer's pattern
// exactly: no reflection-based service registration, since there is no
// generated stub to provide one.
func RegisterGeneratorServer(s *grpc.Server, srv GeneratorServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*GeneratorServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Execute", Handler: executeHandler},
			{MethodName: "Reset", Handler: resetHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "netnode",
	}, srv)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeneratorServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Execute"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GeneratorServer).Execute(ctx, req.(*ExecuteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GeneratorServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Reset"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GeneratorServer).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}
