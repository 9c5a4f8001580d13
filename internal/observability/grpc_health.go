package observability

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves the standard gRPC health protocol for the transcriber.
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
	lis    net.Listener
}

// NewGRPCHealth listens on addr and registers the health service.
// The service starts as NOT_SERVING until SetServing(true) is called.
func NewGRPCHealth(addr string) (*GRPCHealth, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &GRPCHealth{server: srv, health: hs, lis: lis}, nil
}

// Addr returns the bound listener address.
func (g *GRPCHealth) Addr() net.Addr {
	return g.lis.Addr()
}

// Serve blocks until Stop is called.
func (g *GRPCHealth) Serve() error {
	return g.server.Serve(g.lis)
}

// SetServing flips the reported status of the overall server and the named service.
func (g *GRPCHealth) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", st)
	g.health.SetServingStatus(serviceName, st)
}

// Stop marks everything NOT_SERVING and gracefully stops the server.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
