// Package grpcserver runs the gRPC health endpoint used by orchestrators.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerService is the health service name reported for the donation ledger.
const LedgerService = "glimpse.ledger"

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health serves grpc.health.v1 and tracks storage reachability.
type Health struct {
	*grpc.Server
	hs  *health.Server
	log *zap.Logger
}

// NewHealth constructs a gRPC server with the recover and logging interceptors
// and a health service that starts NOT_SERVING until the first probe.
func NewHealth(log *zap.Logger) *Health {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
	))
	hs := health.NewServer()
	hs.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &Health{Server: srv, hs: hs, log: log}
}

// Probe pings storage once and updates both the overall and ledger status.
func (h *Health) Probe(ctx context.Context, p Pinger) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := p.Ping(ctx); err != nil {
		h.log.Warn("health probe failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(LedgerService, st)
}

// Watch probes every interval until ctx is done, then marks the server as
// shutting down so clients drain.
func (h *Health) Watch(ctx context.Context, p Pinger, interval time.Duration) {
	h.Probe(ctx, p)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Probe(ctx, p)
		}
	}
}
