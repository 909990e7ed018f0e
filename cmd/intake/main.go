package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"damage-intake/api"
	"damage-intake/api/middleware"
	"damage-intake/api/services"
	"damage-intake/db"
	"damage-intake/pkg/config"
	"damage-intake/pkg/observability"
	embeddednats "damage-intake/pkg/services/embedded-nats"
	"damage-intake/pkg/services/workers"
	"damage-intake/pkg/shared"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func initDB(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*db.Service, error) {
	dbConfig := db.DefaultConfig()
	dbConfig.Driver = cfg.DB.Driver
	dbConfig.DSN = cfg.DB.Path
	if cfg.DB.Driver == config.DriverPostgres {
		dbConfig.DSN = cfg.DB.DSN
		dbConfig.MaxOpenConns = 10
		dbConfig.MaxIdleConns = 5
	}
	dbConfig.Logger = logger

	dbService, err := db.New(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}
	return dbService, nil
}

func natsConfig(cfg config.Config, logger zerolog.Logger) *embeddednats.Config {
	natsConfig := embeddednats.DefaultConfig()
	natsConfig.Port = cfg.NATS.Port
	natsConfig.DataDir = cfg.NATS.DataDir
	natsConfig.Logger = logger
	return natsConfig
}

// initNATS starts the embedded server with its streams and consumers. On
// error nothing is left running.
func initNATS(natsConfig *embeddednats.Config, logger zerolog.Logger) (*embeddednats.EmbeddedNATS, error) {
	nats, err := embeddednats.New(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS: %w", err)
	}

	if err := nats.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
	}

	if err := nats.CreateDamageStreams(); err != nil {
		shutdownNATS(nats, logger)
		return nil, fmt.Errorf("failed to create damage streams: %w", err)
	}
	if err := nats.CreateDamageConsumers(); err != nil {
		shutdownNATS(nats, logger)
		return nil, fmt.Errorf("failed to create damage consumers: %w", err)
	}
	return nats, nil
}

func shutdownNATS(nats *embeddednats.EmbeddedNATS, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := nats.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown NATS")
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flagSet := pflag.NewFlagSet("intake", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := observability.InitLogger(shared.ServiceName, level)
	observability.RegisterMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbService, err := initDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbService.Close()

	nats, err := initNATS(natsConfig(cfg, logger), logger)
	if err != nil {
		return err
	}
	defer shutdownNATS(nats, logger)

	reports := services.NewReportService(dbService, nats, logger)

	workerManager, err := workers.NewManager(nats, reports, logger)
	if err != nil {
		return fmt.Errorf("failed to create worker manager: %w", err)
	}
	if err := workerManager.Start(); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mux := http.NewServeMux()
	handlers := api.NewHandlers(reports, logger,
		api.HealthCheck{Name: "database", Check: dbService.Health},
		api.HealthCheck{Name: "nats", Check: func(context.Context) error { return nats.HealthCheck() }},
	)
	handlers.RegisterRoutes(mux)

	handler := middleware.CORS(middleware.RequestLogger(logger)(middleware.RequestMetrics(mux)))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("nats", nats.ClientURL()).Msg("starting damage intake server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info().Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
	}

	if err := workerManager.Stop(); err != nil {
		logger.Error().Err(err).Msg("failed to stop workers")
	}

	// NATS and then the database close in the deferred calls above.
	return nil
}
