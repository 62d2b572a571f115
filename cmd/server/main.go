// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/api/rest"
	"github.com/aono31/jambox/internal/api/ws"
	"github.com/aono31/jambox/internal/app/coordinator"
	"github.com/aono31/jambox/internal/app/repo"
	"github.com/aono31/jambox/internal/domain/jam"
	"github.com/aono31/jambox/internal/infra/bus"
	"github.com/aono31/jambox/internal/infra/config"
	"github.com/aono31/jambox/internal/infra/eventstore"
	"github.com/aono31/jambox/internal/infra/logger"
	"github.com/aono31/jambox/internal/infra/metrics"
)

var (
	app        = kingpin.New("jambox-server", "jambox collaborative jam session server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	store := eventstore.New(collector)
	eventBus := bus.New(collector)

	sessions := repo.NewSessionRepository(store)
	rounds := repo.NewRoundRepository(store)
	svc := jam.NewService()

	sessionCoord := coordinator.NewSessionCoordinator(sessions, eventBus)
	roundCoord := coordinator.NewRoundCoordinator(sessions, rounds, svc, eventBus)
	jamCoord := coordinator.NewJamCoordinator(sessions, rounds, svc, eventBus, coordinator.JamConfig{
		RoundDurationSec: cfg.Session.RoundDurationSec,
		MaxRounds:        cfg.Session.MaxRounds,
		TickInterval:     time.Duration(cfg.Session.CountdownIntervalSec) * time.Second,
	})
	defer jamCoord.Close()

	hub := ws.NewHub(eventBus)

	// Coordinators subscribe before the hub so domain reactions run before
	// the relay fans events out to peers.
	sessionCoord.Register()
	roundCoord.Register()
	jamCoord.Register()
	hub.Register()

	srv := rest.NewServer(sessionCoord, roundCoord, sessions, rounds, hub, metrics.Handler(registry))
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
