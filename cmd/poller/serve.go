package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Priya8975/activity-poller/internal/api"
	"github.com/Priya8975/activity-poller/internal/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poll loop and the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.hub.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			a.poller.Start(ctx)
		}()

		router := api.NewRouter(a.poller, a.pg, a.queue, a.breaker, a.hub)
		server := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // POST /poll runs a full cycle and /ws is long-lived
			IdleTimeout:  60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("server starting", "port", cfg.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			stop()
			wg.Wait()
			return err
		}

		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
		wg.Wait()

		logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
