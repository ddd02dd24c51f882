package grpc

import (
	"context"
	"fmt"
	"net"

	pkglogger "github.com/wekeepgrowing/marketplace-backend/pkg/logger"
	grpchandler "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/handler/grpc"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	server   *grpc.Server
	listener net.Listener
}

func NewServer(cfg *config.Config, logger *zap.Logger, health *grpchandler.HealthHandler) *Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(pkglogger.NewGrpcUnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(pkglogger.NewGrpcStreamServerInterceptor(logger)),
	)
	healthpb.RegisterHealthServer(server, health.Server())

	return &Server{
		config: cfg,
		logger: logger,
		server: server,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.GRPC.Host, s.config.Server.GRPC.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.logger.Info("Starting gRPC server", zap.String("address", addr))

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
