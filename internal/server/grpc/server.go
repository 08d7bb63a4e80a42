// Package grpc runs the gRPC side of the service: the standard health
// service, with the service status driven by a store probe.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultProbeInterval = 10 * time.Second

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Option func(*GRPCServer)

// WithProbe ties the status of the named service to p.
func WithProbe(p Pinger, interval time.Duration) Option {
	return func(s *GRPCServer) {
		s.probe = p
		if interval > 0 {
			s.probeInterval = interval
		}
	}
}

type GRPCServer struct {
	address       string
	service       string
	logger        logging.Logger
	health        *health.Server
	probe         Pinger
	probeInterval time.Duration
}

// NewGRPCServer creates a server for address. service is the name reported
// through the health service next to the overall "" entry.
func NewGRPCServer(address, service string, l logging.Logger, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:       address,
		service:       service,
		logger:        l.With("module", "grpc_server"),
		health:        health.NewServer(),
		probeInterval: defaultProbeInterval,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve blocks until ctx is done. Health turns NOT_SERVING before the
// graceful stop.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(s.service, s.probeStatus(ctx))

	go s.watchProbe(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
