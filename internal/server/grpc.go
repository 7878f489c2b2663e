package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/morezero/comms-transport/pkg/headers"
)

const grpcLogPrefix = "server:grpc"

type headersKey struct{}

// requestHeaders returns the headers bridged by metadataInterceptor, or empty headers.
func requestHeaders(ctx context.Context) *headers.RequestHeaders {
	if h, ok := ctx.Value(headersKey{}).(*headers.RequestHeaders); ok {
		return h
	}
	return headers.New()
}

// metadataInterceptor bridges incoming metadata into RequestHeaders for the handler. Calls
// whose metadata cannot be carried as request headers fail with InvalidArgument.
func metadataInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	h, err := headers.FromIncomingContext(ctx)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - rejected %s: %v", grpcLogPrefix, info.FullMethod, err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	slog.Debug(fmt.Sprintf("%s - %s request_id=%s user_id=%s", grpcLogPrefix, info.FullMethod, h.First(headers.KeyRequestID), h.First(headers.KeyUserID)))
	return handler(context.WithValue(ctx, headersKey{}, h), req)
}

// healthService answers grpc.health.v1 checks from Server.Health. The empty service name and
// the service domain are known.
type healthService struct {
	grpc_health_v1.UnimplementedHealthServer
	s *Server
}

func (hs *healthService) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	if id := requestHeaders(ctx).First(headers.KeyRequestID); id != "" {
		_ = grpc.SetHeader(ctx, metadata.Pairs(headers.KeyRequestID, id))
	}
	if svc := req.GetService(); svc != "" && svc != hs.s.cfg.ServiceDomain {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}

	ctx, cancel := context.WithTimeout(ctx, hs.s.cfg.HealthCheckTimeout)
	defer cancel()
	resp := &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}
	if hs.s.Health(ctx).Status != "healthy" {
		resp.Status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return resp, nil
}

// newGRPCServer builds the gRPC server with the health service registered.
func (s *Server) newGRPCServer() *grpc.Server {
	gs := grpc.NewServer(grpc.UnaryInterceptor(metadataInterceptor))
	grpc_health_v1.RegisterHealthServer(gs, &healthService{s: s})
	return gs
}

// CheckHealth calls the gRPC health service at target and returns an error unless it is
// serving. The call carries a fresh x-request-id.
func CheckHealth(ctx context.Context, target string, opts ...grpc.DialOption) error {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return fmt.Errorf("%s - failed to create client for %s: %w", grpcLogPrefix, target, err)
	}
	defer conn.Close()

	h := headers.New()
	if err := h.Set(headers.KeyRequestID, nuid.Next()); err != nil {
		return fmt.Errorf("%s - %w", grpcLogPrefix, err)
	}
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(h.NewOutgoingContext(ctx), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%s - health check %s: %w", grpcLogPrefix, target, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s - %s is %s", grpcLogPrefix, target, resp.GetStatus())
	}
	return nil
}
