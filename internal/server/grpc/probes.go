package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const probeTimeout = 3 * time.Second

func (s *HealthServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check(ctx)
		}
	}
}

// check runs every probe and publishes the results.
func (s *HealthServer) check(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING

	for name, probe := range s.probes {
		status := healthpb.HealthCheckResponse_SERVING

		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := probe(pctx)
		cancel()

		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn(ctx, "health probe failed", "probe", name, "error", err)
		}
		s.health.SetServingStatus(name, status)
	}

	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)
}
