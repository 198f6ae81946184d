// Package grpcsrv is the admin gRPC surface, spec.md §12.1: liveness and
// readiness via grpc-go's own pre-generated health service, plus
// reflection for ad-hoc grpcurl introspection. No protoc/buf step is
// needed since both services ship compiled inside google.golang.org/grpc
// itself (DESIGN.md: this sidesteps the dropped protovalidate/gen/go
// toolchain the teacher otherwise relied on).
package grpcsrv

import (
	"context"
	"log/slog"
	"net"

	recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/villager-coder/skynet-go/internal/actor"
)

// Server wraps a *grpc.Server exposing health/reflection. The health
// status is SERVING from New until Stop sets it to NOT_SERVING; the held
// registry is not read by any RPC.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	registry   *actor.Registry
}

// New builds the admin gRPC server bound to registry for future stats
// RPCs; recovery middleware ensures a panicking interceptor chain never
// takes the whole process down, matching spec.md §7's "never unwind
// across a callback boundary" carried into the admin surface.
func New(registry *actor.Registry, logger *slog.Logger) *Server {
	recoveryOpts := []recovery.Option{
		recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
			logger.Error("admin grpc: recovered panic", slog.Any("panic", p))
			return nil
		}),
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recovery.UnaryServerInterceptor(recoveryOpts...)),
		grpc.ChainStreamInterceptor(recovery.StreamServerInterceptor(recoveryOpts...)),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{grpcServer: grpcServer, health: healthSrv, registry: registry}
}

// Serve blocks accepting connections on addr until the listener closes.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.grpcServer.Serve(lis)
}

// Stop marks the service NOT_SERVING and gracefully stops the server.
func (s *Server) Stop() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.grpcServer.GracefulStop()
}
