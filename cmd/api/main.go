package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/conference-api/internal/bootstrap"
	"github.com/jwalitptl/conference-api/internal/config"
	assignmentHandler "github.com/jwalitptl/conference-api/internal/handler/assignment"
	"github.com/jwalitptl/conference-api/internal/handler/health"
	invitationHandler "github.com/jwalitptl/conference-api/internal/handler/invitation"
	"github.com/jwalitptl/conference-api/internal/middleware"
	"github.com/jwalitptl/conference-api/internal/repository/cache"
	"github.com/jwalitptl/conference-api/internal/router"
	assignmentService "github.com/jwalitptl/conference-api/internal/service/assignment"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/internal/service/authz"
	"github.com/jwalitptl/conference-api/internal/service/expiry"
	invitationService "github.com/jwalitptl/conference-api/internal/service/invitation"
	internalWorker "github.com/jwalitptl/conference-api/internal/worker"
	"github.com/jwalitptl/conference-api/pkg/auth"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/metrics"
	"github.com/jwalitptl/conference-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := bootstrap.NewLogger(cfg.Log, "conference-api")

	// Initialize storage
	storage, err := bootstrap.OpenStorage(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer storage.Close()
	repos := storage.Repos

	clk := clock.New()
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "", prometheus.DefaultRegisterer)

	// Titles are display-only, so the read path may serve them from cache.
	papers := cache.NewPaperRepository(repos.Papers, cfg.Cache.PaperTTL, cfg.Cache.CleanupInterval)
	repos.Assignments = cache.NewAssignmentRepository(repos.Assignments, papers)

	// Initialize services
	auditLogger := audit.NewAuditLogger(audit.NewService(repos.Audit, clk), logger)
	guard := authz.NewGuard(repos.Assignments, auditLogger, clk, logger)
	sweeper := expiry.NewSweeper(repos.Invitations, clk, m, logger)
	dispatcher := bootstrap.NewDispatcher(cfg, repos, clk, m, logger)

	invitationSvc := invitationService.NewService(repos.Invitations, papers, guard, sweeper, logger, invitationService.Config{
		DefaultPageSize: cfg.Invitation.DefaultPageSize,
		MaxPageSize:     cfg.Invitation.MaxPageSize,
	})
	actionSvc := invitationService.NewActionService(repos.Invitations, guard, auditLogger, clk, m, logger)
	orchestrator := assignmentService.NewOrchestrator(repos, dispatcher, guard, clk, m, logger)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer))

	// Initialize handlers
	healthHandler := health.NewHandler(map[string]health.Check{"database": storage.Ping}, prometheus.DefaultGatherer)
	invitationH := invitationHandler.NewHandler(invitationSvc, actionSvc)
	assignmentH := assignmentHandler.NewHandler(orchestrator, authMiddleware, auditLogger)

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		healthHandler,
		invitationH,
		assignmentH,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			MetricsPrefix:    cfg.Metrics.Namespace + "_http",
			Registerer:       prometheus.DefaultRegisterer,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// A memory store is invisible to cmd/worker, so its workers run here.
	if storage.InProcess {
		broker, err := bootstrap.NewBroker(cfg, logger)
		if err != nil {
			logger.Warn("broker unavailable, outbox events stay pending", "error", err.Error())
		} else {
			defer broker.Close()
			outboxProcessor := worker.NewOutboxProcessor(repos.Outbox, broker, worker.OutboxProcessorConfig{
				BatchSize:     cfg.Outbox.BatchSize,
				PollInterval:  cfg.Outbox.PollInterval,
				RetryAttempts: cfg.Outbox.RetryAttempts,
				RetryDelay:    cfg.Outbox.RetryDelay,
				MaxAttempts:   cfg.Outbox.MaxAttempts,
				Topic:         cfg.Outbox.Topic,
			}, logger, m)
			go outboxProcessor.Start(workerCtx)
		}
		go internalWorker.NewNotificationRetryWorker(dispatcher, cfg.Notification.RetryInterval, logger).Start(workerCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush audit entries written by in-flight requests.
	done := make(chan struct{})
	go func() {
		auditLogger.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn().Msg("timed out waiting for audit log writes")
	}

	log.Info().Msg("server exited")
}
