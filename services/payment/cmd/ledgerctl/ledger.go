package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/app"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/infrastructure/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.NewConnection(&cfg.Database, logger)
			if err != nil {
				return err
			}
			defer database.Close(db, logger)

			if err := database.Migrate(db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Grant missing purchases and apply missing settlements",
		Long: `Run one reconciliation pass:

  1. every succeeded payment attempt without a purchase record is granted
  2. every author purchase without a sale settlement is settled

The pass is idempotent and safe to run while the server is up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				report, err := a.Ledger.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func incidentsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "List gateway responses that need manual follow-up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				incidents, err := a.Sessions.ListIncidents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), incidents)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum incidents")
	return cmd
}
