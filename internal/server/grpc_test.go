package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/morezero/comms-transport/pkg/headers"
)

const grpcTestPrefix = "server:grpc_test"

// startGRPC serves s.newGRPCServer over an in-memory listener and returns the dial options
// that reach it.
func startGRPC(t *testing.T, s *Server) []grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := s.newGRPCServer()
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	return []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
}

func healthClient(t *testing.T, opts []grpc.DialOption) grpc_health_v1.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	if err != nil {
		t.Fatalf("%s - NewClient: %v", grpcTestPrefix, err)
	}
	t.Cleanup(func() { conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func TestGRPCHealth_Check(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		service   string
		want      grpc_health_v1.HealthCheckResponse_ServingStatus
		wantCode  codes.Code
	}{
		{name: "serving", connected: true, want: grpc_health_v1.HealthCheckResponse_SERVING},
		{name: "named service", connected: true, service: "chat-persist.runtiva.com", want: grpc_health_v1.HealthCheckResponse_SERVING},
		{name: "disconnected", want: grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{name: "unknown service", connected: true, service: "billing.runtiva.com", wantCode: codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(t)
			s.conn = fakeConn{connected: tt.connected}
			client := healthClient(t, startGRPC(t, s))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: tt.service})
			if tt.wantCode != codes.OK {
				if status.Code(err) != tt.wantCode {
					t.Fatalf("%s - code = %v, want %v", grpcTestPrefix, status.Code(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - Check: %v", grpcTestPrefix, err)
			}
			if resp.GetStatus() != tt.want {
				t.Errorf("%s - status = %v, want %v", grpcTestPrefix, resp.GetStatus(), tt.want)
			}
		})
	}
}

func TestGRPCHealth_EchoesRequestID(t *testing.T) {
	client := healthClient(t, startGRPC(t, testServer(t)))

	h := headers.New()
	if err := h.Set(headers.KeyRequestID, "req-9"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var md metadata.MD
	if _, err := client.Check(h.NewOutgoingContext(ctx), &grpc_health_v1.HealthCheckRequest{}, grpc.Header(&md)); err != nil {
		t.Fatalf("%s - Check: %v", grpcTestPrefix, err)
	}
	if got := md.Get(headers.KeyRequestID); len(got) != 1 || got[0] != "req-9" {
		t.Errorf("%s - reply %s = %v", grpcTestPrefix, headers.KeyRequestID, got)
	}
}

func TestMetadataInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	var seen *headers.RequestHeaders
	handler := func(ctx context.Context, _ any) (any, error) {
		seen = requestHeaders(ctx)
		return "ok", nil
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(":authority", "bufnet", "x-user-id", "42"))
	if _, err := metadataInterceptor(ctx, nil, info, handler); err != nil {
		t.Fatalf("%s - interceptor: %v", grpcTestPrefix, err)
	}
	if seen.First(headers.KeyUserID) != "42" || seen.Len() != 1 {
		t.Errorf("%s - bridged headers = %v", grpcTestPrefix, seen.Keys())
	}

	bad := metadata.NewIncomingContext(context.Background(), metadata.MD{"bad key": []string{"v"}})
	_, err := metadataInterceptor(bad, nil, info, func(context.Context, any) (any, error) {
		t.Errorf("%s - handler ran for invalid metadata", grpcTestPrefix)
		return nil, nil
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("%s - code = %v, want InvalidArgument", grpcTestPrefix, status.Code(err))
	}
}

func TestRequestHeaders_Missing(t *testing.T) {
	if h := requestHeaders(context.Background()); h == nil || h.Len() != 0 {
		t.Errorf("%s - expected empty headers", grpcTestPrefix)
	}
}

func TestCheckHealth(t *testing.T) {
	s := testServer(t)
	opts := startGRPC(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := CheckHealth(ctx, "passthrough:///bufnet", opts...); err != nil {
		t.Errorf("%s - CheckHealth: %v", grpcTestPrefix, err)
	}

	s.conn = fakeConn{}
	err := CheckHealth(ctx, "passthrough:///bufnet", opts...)
	if err == nil || !strings.Contains(err.Error(), "NOT_SERVING") {
		t.Errorf("%s - err = %v, want NOT_SERVING", grpcTestPrefix, err)
	}
}
