package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"
)

// RegistryServiceName is the fully qualified gRPC service name.
const RegistryServiceName = "configmonkey.v1.Registry"

// RegistryServiceServer is the gRPC surface of the registry. Every method
// takes and returns a structpb.Struct.
type RegistryServiceServer interface {
	CreateDomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDomains(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDomain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListConfigs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateVersion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVersions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentVersion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetVersion(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type rpcMethod = func(RegistryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// RegistryServiceDesc describes the registry service for grpc.Server.
var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: RegistryServiceName,
	HandlerType: (*RegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateDomain", RegistryServiceServer.CreateDomain),
		unary("GetDomain", RegistryServiceServer.GetDomain),
		unary("ListDomains", RegistryServiceServer.ListDomains),
		unary("DeleteDomain", RegistryServiceServer.DeleteDomain),
		unary("CreateConfig", RegistryServiceServer.CreateConfig),
		unary("GetConfig", RegistryServiceServer.GetConfig),
		unary("ListConfigs", RegistryServiceServer.ListConfigs),
		unary("DeleteConfig", RegistryServiceServer.DeleteConfig),
		unary("CreateVersion", RegistryServiceServer.CreateVersion),
		unary("ListVersions", RegistryServiceServer.ListVersions),
		unary("GetCurrentVersion", RegistryServiceServer.GetCurrentVersion),
		unary("GetVersion", RegistryServiceServer.GetVersion),
	},
	Metadata: "configmonkey/v1/registry",
}

func unary(name string, call rpcMethod) grpc.MethodDesc {
	fullMethod := "/" + RegistryServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RegistryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RegistryServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// NewGRPCServer creates a gRPC server with standard interceptors and
// registers the registry service, the health service and reflection.
func NewGRPCServer(s *Server, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.recoverRPC,
			s.logRPC,
			AuthInterceptor(authToken),
		),
	)

	srv.RegisterService(&RegistryServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(RegistryServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}
