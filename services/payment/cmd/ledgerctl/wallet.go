package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/app"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/dto"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/repository"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect author wallets",
	}
	cmd.AddCommand(walletShowCmd())
	return cmd
}

func walletShowCmd() *cobra.Command {
	var entries int

	cmd := &cobra.Command{
		Use:   "show <author-id>",
		Short: "Show an author's wallet and recent journal entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authorID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid author id: %w", err)
			}

			return withApp(func(a *app.App) error {
				wallet, err := a.Wallets.GetWallet(cmd.Context(), authorID)
				if err != nil {
					return err
				}
				history, err := a.Wallets.History(cmd.Context(), authorID, dto.PageParams{Limit: entries})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"wallet":  dto.NewWalletDTO(wallet),
					"entries": history.Entries,
					"total":   history.Pagination.Total,
				})
			})
		},
	}

	cmd.Flags().IntVarP(&entries, "entries", "n", 20, "Number of journal entries to show")
	return cmd
}

func withdrawalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawal",
		Short: "Review author withdrawal requests",
	}
	cmd.AddCommand(withdrawalListCmd())
	cmd.AddCommand(withdrawalPayoutCmd())
	cmd.AddCommand(withdrawalApproveCmd())
	cmd.AddCommand(withdrawalRejectCmd())
	cmd.AddCommand(withdrawalCompleteCmd())
	return cmd
}

func withdrawalListCmd() *cobra.Command {
	var (
		status string
		author string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List withdrawal requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repository.WithdrawalFilter{Limit: limit}
			if status != "" {
				s := model.WithdrawalStatus(status)
				filter.Status = &s
			}
			if author != "" {
				authorID, err := uuid.Parse(author)
				if err != nil {
					return fmt.Errorf("invalid author id: %w", err)
				}
				filter.AuthorID = &authorID
			}

			return withApp(func(a *app.App) error {
				result, err := a.Withdrawals.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "pending", "Filter by status (empty for all)")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Filter by author id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results")
	return cmd
}

func withdrawalPayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payout <withdrawal-id>",
		Short: "Show decrypted payout details for a withdrawal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid withdrawal id: %w", err)
			}

			return withApp(func(a *app.App) error {
				request, details, err := a.Withdrawals.PayoutDetails(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"withdrawal":      request,
					"payment_details": details,
				})
			})
		},
	}
}

// reviewCmd builds a command that applies one review action to a withdrawal
func reviewCmd(use, short string, apply func(cmd *cobra.Command, a *app.App, id uuid.UUID) (*model.WithdrawalRequest, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <withdrawal-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid withdrawal id: %w", err)
			}

			return withApp(func(a *app.App) error {
				request, err := apply(cmd, a, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), request)
			})
		},
	}
}

func withdrawalApproveCmd() *cobra.Command {
	return reviewCmd("approve", "Approve a pending withdrawal",
		func(cmd *cobra.Command, a *app.App, id uuid.UUID) (*model.WithdrawalRequest, error) {
			return a.Withdrawals.Approve(cmd.Context(), id)
		})
}

func withdrawalRejectCmd() *cobra.Command {
	var reason string

	cmd := reviewCmd("reject", "Reject a withdrawal and return its amount to the wallet",
		func(cmd *cobra.Command, a *app.App, id uuid.UUID) (*model.WithdrawalRequest, error) {
			return a.Withdrawals.Reject(cmd.Context(), id, reason)
		})
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason shown to the author")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func withdrawalCompleteCmd() *cobra.Command {
	return reviewCmd("complete", "Mark an approved withdrawal as paid out",
		func(cmd *cobra.Command, a *app.App, id uuid.UUID) (*model.WithdrawalRequest, error) {
			return a.Withdrawals.Complete(cmd.Context(), id)
		})
}
