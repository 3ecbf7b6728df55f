package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/conference-api/internal/bootstrap"
	"github.com/jwalitptl/conference-api/internal/config"
	internalWorker "github.com/jwalitptl/conference-api/internal/worker"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
	"github.com/jwalitptl/conference-api/pkg/worker"
)

func setupHealthCheck(port int, ready func(ctx context.Context) error, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := bootstrap.NewLogger(cfg.Log, "conference-worker")

	if cfg.Database.Driver == "memory" {
		logger.Fatal(nil, "The worker needs a shared database; the memory driver runs its workers inside the API")
	}

	// Initialize database
	storage, err := bootstrap.OpenStorage(cfg.Database)
	if err != nil {
		logger.ZL.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer storage.Close()

	// Initialize broker
	broker, err := bootstrap.NewBroker(cfg, logger)
	if err != nil {
		logger.ZL.Fatal().Err(err).Str("kind", cfg.Broker.Kind).Msg("Failed to create broker")
	}
	defer broker.Close()

	m := metrics.NewMetrics(cfg.Metrics.Namespace, "worker", prometheus.DefaultRegisterer)
	dispatcher := bootstrap.NewDispatcher(cfg, storage.Repos, clock.New(), m, logger)

	processor := worker.NewOutboxProcessor(
		storage.Repos.Outbox,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			MaxAttempts:   cfg.Outbox.MaxAttempts,
			Topic:         cfg.Outbox.Topic,
		},
		logger,
		m,
	)
	retryWorker := internalWorker.NewNotificationRetryWorker(dispatcher, cfg.Notification.RetryInterval, logger)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Server.HealthPort, storage.Ping, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.ZL.Info().Msg("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		retryWorker.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}
