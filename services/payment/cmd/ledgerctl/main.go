package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	pkglogger "github.com/wekeepgrowing/marketplace-backend/pkg/logger"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/app"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/config"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the marketplace payment ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(walletCmd())
	rootCmd.AddCommand(withdrawalCmd())
	rootCmd.AddCommand(incidentsCmd())
	rootCmd.AddCommand(eventsCmd())
	return rootCmd
}

// loadConfig reads the service config and builds a logger for CLI use
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Keep stdout for command output
	cfg.Log.Output = "stderr"
	logger, err := pkglogger.NewZapLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// openApp builds the application the commands run against
var openApp = func() (*app.App, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, logger, false)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// withApp runs fn against a fully wired application
func withApp(fn func(a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Logger.Sync()
	defer a.Close()

	return fn(a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
