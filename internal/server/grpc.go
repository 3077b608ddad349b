package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/presets/internal/rpc"
)

// NewGRPCServer creates a gRPC server with standard interceptors,
// registers the PresetService and the standard health service, and returns
// the server ready to serve.
func NewGRPCServer(presetsServer *PresetsServer, auth *Authenticator) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			IdentityInterceptor(auth),
		),
	)

	rpc.RegisterPresetServiceServer(srv, presetsServer)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}
