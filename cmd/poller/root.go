package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var migrationsDir string

var rootCmd = &cobra.Command{
	Use:   "activity-poller",
	Short: "Incremental activity feed poller",
	Long: `activity-poller periodically fetches recent events for every configured
repository, dispatches the ones it has not seen yet to the trigger bus and
remembers the last processed event per repository.

Configuration is read from the environment (see internal/config).`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and logs a failure.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "directory holding the SQL migrations")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
