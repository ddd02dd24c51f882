package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	pkglogger "github.com/wekeepgrowing/marketplace-backend/pkg/logger"
	handlers "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/adapter/handler/http"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/middleware/auth"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/usecase"
	"go.uber.org/zap"
)

// Services are the use cases exposed over HTTP
type Services struct {
	Sessions    *usecase.PaymentSessionService
	Ledger      *usecase.PurchaseLedger
	Wallets     *usecase.WalletService
	Withdrawals *usecase.WithdrawalService
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services Services
}

func NewServer(cfg *config.Config, logger *zap.Logger, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	pkglogger.WithEchoLogger(e, logger)
	e.Use(middleware.RequestID())
	e.Use(pkglogger.NewEchoRequestLogger(logger))
	e.Use(middleware.Recover())
	if cfg.Service.ClientURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{cfg.Service.ClientURL},
			AllowMethods: []string{echo.GET, echo.POST},
		}))
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	purchaseHandler := handlers.NewPurchaseHandler(s.logger, s.services.Sessions)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.services.Sessions)
	walletHandler := handlers.NewWalletHandler(s.logger, s.services.Wallets)
	withdrawalHandler := handlers.NewWithdrawalHandler(s.logger, s.services.Withdrawals)
	adminHandler := handlers.NewAdminHandler(s.logger, s.services.Withdrawals, s.services.Ledger, s.services.Sessions)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/api/v1/webhooks",
		},
	}

	v1 := s.echo.Group("/api/v1")

	// Gateway callbacks authenticate by signature
	v1.POST("/webhooks/stripe", webhookHandler.HandleStripe)

	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	purchases := protected.Group("/purchases")
	purchases.POST("", purchaseHandler.Initiate)
	purchases.GET("/:id", purchaseHandler.Get)
	purchases.POST("/:id/opened", purchaseHandler.MarkOpened)
	purchases.POST("/:id/result", purchaseHandler.ReportResult)

	authorOnly := auth.RequireWalletAccess()
	protected.GET("/wallet", walletHandler.GetWallet, authorOnly)
	protected.GET("/wallet/entries", walletHandler.GetEntries, authorOnly)
	protected.POST("/withdrawals", withdrawalHandler.Create, authorOnly)
	protected.GET("/withdrawals", withdrawalHandler.List, authorOnly)

	admin := protected.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/withdrawals", adminHandler.ListWithdrawals)
	admin.GET("/withdrawals/:id/payout", adminHandler.GetPayoutDetails)
	admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
	admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
	admin.POST("/withdrawals/:id/complete", adminHandler.CompleteWithdrawal)
	admin.POST("/reconcile", adminHandler.Reconcile)
	admin.GET("/incidents", adminHandler.ListIncidents)
}
