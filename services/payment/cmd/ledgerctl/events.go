package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wekeepgrowing/marketplace-backend/pkg/messaging"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Watch ledger notifications",
	}
	cmd.AddCommand(eventsTailCmd())
	return cmd
}

func eventsTailCmd() *cobra.Command {
	var channel string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print ledger events published to Redis until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if channel == "" {
				channel = cfg.Redis.Channel
			}

			client, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			messages, err := client.Subscribe(cmd.Context(), channel)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for msg := range messages {
				fmt.Fprintf(out, "%s %s\n", msg.Time.Format("2006-01-02T15:04:05Z07:00"), msg.Payload)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&channel, "channel", "c", "", "Redis channel (defaults to redis.channel)")
	return cmd
}
