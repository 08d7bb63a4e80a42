package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func (s *GRPCServer) probeStatus(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if s.probe == nil {
		return healthpb.HealthCheckResponse_SERVING
	}

	pctx, cancel := context.WithTimeout(ctx, s.probeInterval)
	defer cancel()

	if err := s.probe.PingContext(pctx); err != nil {
		s.logger.Warn(ctx, "store probe failed", "error", err)
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

func (s *GRPCServer) watchProbe(ctx context.Context) {
	if s.probe == nil {
		return
	}

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.probeStatus(ctx)
			if ctx.Err() != nil {
				return
			}
			s.health.SetServingStatus(s.service, st)
		}
	}
}
