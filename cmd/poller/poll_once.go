package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/Priya8975/activity-poller/internal/config"
	"github.com/spf13/cobra"
)

var pollOnceCmd = &cobra.Command{
	Use:     "poll-once",
	Short:   "Run a single poll cycle and print its stats",
	Example: `  EVENT_TYPE_WHITELIST=PushEvent,IssuesEvent activity-poller poll-once`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go a.hub.Run(ctx)

		stats, err := a.poller.Poll(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	rootCmd.AddCommand(pollOnceCmd)
}
