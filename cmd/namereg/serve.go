package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"namereg/internal/config"
)

var (
	serveHost     string
	servePort     int
	serveDB       string
	serveStrategy string
	serveWorkers  int
	servePoolSize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the namereg HTTP server. GET /{name} stores the name and answers with
the stored value as a JSON string; any failure answers 500 with an empty body.

The registration sequence runs either inline on the request goroutine or
offloaded to a dedicated worker pool (--strategy).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := config.DefaultConfig()
	serveCmd.Flags().StringVar(&serveHost, "host", defaults.Server.Host, "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", defaults.Server.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDB, "db", defaults.Database.Path, "SQLite database file")
	serveCmd.Flags().StringVar(&serveStrategy, "strategy", defaults.Handler.Strategy, "Handler strategy: inline or offload")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", defaults.Handler.Workers, "Offload worker count")
	serveCmd.Flags().IntVar(&servePoolSize, "pool-size", defaults.Database.MaxOpenConns, "Maximum pooled database connections")
}

// applyServeFlags overrides cfg with the flags the user actually set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("db") {
		cfg.Database.Path = serveDB
	}
	if flags.Changed("strategy") {
		cfg.Handler.Strategy = serveStrategy
	}
	if flags.Changed("workers") {
		cfg.Handler.Workers = serveWorkers
	}
	if flags.Changed("pool-size") {
		cfg.Database.MaxOpenConns = servePoolSize
		if cfg.Database.MaxIdleConns > servePoolSize {
			cfg.Database.MaxIdleConns = servePoolSize
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "namereg listening on http://%s (strategy: %s)\n",
			a.server.Addr(), a.service.Strategy())
		serverErr <- a.server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Server error", "error", err.Error())
			_ = a.close(context.Background())
			return err
		}
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", "error", err.Error())
			_ = a.close(shutdownCtx)
			return err
		}
	}

	if err := a.close(context.Background()); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
