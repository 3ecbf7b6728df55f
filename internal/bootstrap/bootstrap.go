// Package bootstrap builds the infrastructure shared by cmd/api and
// cmd/worker from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/conference-api/internal/config"
	"github.com/jwalitptl/conference-api/internal/email"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
	"github.com/jwalitptl/conference-api/internal/repository/postgres"
	"github.com/jwalitptl/conference-api/internal/service/notification"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/messaging"
	"github.com/jwalitptl/conference-api/pkg/messaging/kafka"
	"github.com/jwalitptl/conference-api/pkg/messaging/redis"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

// NewLogger builds the service logger and installs it as the global zerolog
// logger used by the HTTP middleware.
func NewLogger(cfg config.LogConfig, service string) *logger.Logger {
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
	l.ZL = l.ZL.With().Str("service", service).Logger()
	log.Logger = l.ZL
	return l
}

// Storage is an opened gateway plus its lifecycle hooks.
type Storage struct {
	Repos *repository.Repositories
	// Ping backs the readiness probe.
	Ping  func(ctx context.Context) error
	Close func() error
	// InProcess is true when the data lives in this process only, so
	// background workers must run next to the API.
	InProcess bool
}

func OpenStorage(cfg config.DatabaseConfig) (*Storage, error) {
	switch cfg.Driver {
	case "memory":
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			if err := store.LoadSeed(cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		return &Storage{
			Repos:     store.Repositories(),
			Ping:      func(context.Context) error { return nil },
			Close:     func() error { return nil },
			InProcess: true,
		}, nil
	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Repos: postgres.NewRepositories(db),
			Ping:  db.PingContext,
			Close: db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewBroker(cfg *config.Config, l *logger.Logger) (messaging.Broker, error) {
	switch cfg.Broker.Kind {
	case "kafka":
		broker, err := kafka.NewKafkaBroker(kafka.Config{
			Brokers: cfg.Broker.KafkaBrokers,
			GroupID: cfg.Broker.KafkaGroupID,
		}, &l.ZL)
		if err != nil {
			return nil, err
		}
		return broker, nil
	case "redis":
		broker, err := redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &l.ZL)
		if err != nil {
			return nil, err
		}
		return broker, nil
	default:
		return nil, fmt.Errorf("unsupported broker kind %q", cfg.Broker.Kind)
	}
}

// NewDispatcher wires the invitation mailer. With SMTP disabled every
// attempt is recorded as sent without leaving the process.
func NewDispatcher(cfg *config.Config, repos *repository.Repositories, clk clock.Clock, m *metrics.Metrics, l *logger.Logger) *notification.Dispatcher {
	var sender email.Sender = email.NoEmail{}
	if cfg.SMTP.Enabled {
		sender = email.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.FromName)
	} else {
		l.Warn("SMTP disabled, invitation emails will not be delivered")
	}

	return notification.NewDispatcher(
		repos,
		sender,
		email.NewInvitationTemplate(cfg.Notification.TemplatePath, l),
		clk,
		m,
		l,
		notification.Config{
			MaxAttempts: cfg.Notification.MaxAttempts,
			PortalURL:   cfg.Notification.PortalURL,
			Signature:   cfg.SMTP.FromName,
		},
	)
}
