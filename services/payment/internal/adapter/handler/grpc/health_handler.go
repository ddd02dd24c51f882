package grpc

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key reported for the payment ledger
const ServiceName = "marketplace.payment.v1.Ledger"

// Pinger checks a backing dependency
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler keeps the gRPC health status in step with the database
type HealthHandler struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	last    healthpb.HealthCheckResponse_ServingStatus
	stop    context.CancelFunc
	stopped chan struct{}
}

// NewHealthHandler creates a health handler. The status starts as NOT_SERVING
// until the first successful ping.
func NewHealthHandler(pinger Pinger, interval time.Duration, logger *zap.Logger) *HealthHandler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	h := &HealthHandler{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		logger:   logger,
		last:     healthpb.HealthCheckResponse_NOT_SERVING,
	}
	h.server.SetServingStatus(ServiceName, h.last)
	h.server.SetServingStatus("", h.last)
	return h
}

// Server returns the health server to register on a gRPC server
func (h *HealthHandler) Server() healthpb.HealthServer {
	return h.server
}

// Check pings the database once and publishes the result
func (h *HealthHandler) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.PingContext(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("Database ping failed", zap.Error(err))
	}

	h.mu.Lock()
	changed := status != h.last
	h.last = status
	h.mu.Unlock()

	if changed {
		h.logger.Info("Health status changed", zap.String("status", status.String()))
	}
	h.server.SetServingStatus(ServiceName, status)
	h.server.SetServingStatus("", status)
	return status
}

// Start runs Check immediately and then on every interval until Stop
func (h *HealthHandler) Start(ctx context.Context) {
	h.mu.Lock()
	if h.stop != nil {
		h.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	h.stop = cancel
	h.stopped = make(chan struct{})
	stopped := h.stopped
	h.mu.Unlock()

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		h.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}

// Stop ends the check loop and marks the service as shutting down
func (h *HealthHandler) Stop() {
	h.mu.Lock()
	cancel, stopped := h.stop, h.stopped
	h.stop = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
	h.server.Shutdown()
}
