package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkglogger "github.com/wekeepgrowing/marketplace-backend/pkg/logger"
	grpchandler "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/handler/grpc"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/app"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	grpcServer "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/grpc"
	httpServer "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/http"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := pkglogger.NewZapLogger(cfg.Log,
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Database, repositories and use cases
	application, err := app.New(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqlDB, err := application.DB.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL database", zap.Error(err))
	}
	health := grpchandler.NewHealthHandler(sqlDB, 0, logger)
	health.Start(ctx)

	worker := usecase.NewReconcileWorker(application.Ledger, cfg.Payment.ReconcileInterval, logger)
	worker.Start(ctx)

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, logger, health)
	httpSrv := httpServer.NewServer(cfg, logger, httpServer.Services{
		Sessions:    application.Sessions,
		Ledger:      application.Ledger,
		Wallets:     application.Wallets,
		Withdrawals: application.Withdrawals,
	})

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	worker.Stop()
	health.Stop()

	logger.Info("Servers shut down successfully")
}
