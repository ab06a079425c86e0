// Package main is the entry point for the fund operations process.
// One process supervises one fund: it wires the risk engine, portfolio
// tracker and execution router behind the supervisor, starts the tick loop
// and maintenance jobs, and serves the HTTP API until signalled.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/fundcore/internal/config"
	"github.com/aristath/fundcore/internal/di"
	"github.com/aristath/fundcore/internal/server"
	"github.com/aristath/fundcore/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.WithFund(logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	}), cfg.Fund.Supervisor.FundID)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting fundcore")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := container.Supervisor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start fund supervisor")
	}
	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Fund is running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop ticking before the bus and ledger go away.
	if err := container.Supervisor.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop fund supervisor")
	}
	cancel()

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close container")
	}

	log.Info().Msg("Server stopped")
}
