package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/messaging"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxAttempts is how many polls may fail before an event is parked as failed.
	MaxAttempts int
	Topic       string
}

// OutboxProcessor relays committed outbox events to the broker.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.MaxAttempts <= 0 {
		panic("MaxAttempts must be greater than 0")
	}
	if config.Topic == "" {
		panic("Topic must not be empty")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor", "topic", p.config.Topic)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events and returns how many
// were delivered.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.OutboxQueueSize.Set(float64(len(events)))

	sent := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID,
				"event_type", event.EventType)
			continue
		}
		sent++
	}

	return sent, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:          event.ID,
		Type:        event.EventType,
		AggregateID: event.AggregateID,
		Payload:     event.Payload,
		OccurredAt:  event.CreatedAt,
	}

	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func(attempt int) error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		return p.broker.Publish(ctx, p.config.Topic, msg)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		terminal := event.Attempts+1 >= p.config.MaxAttempts
		if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), terminal); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID)
		}
		if terminal {
			p.logger.Warn("Outbox event parked after repeated failures",
				"event_id", event.ID,
				"attempts", event.Attempts+1)
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID)
		return err
	}

	return nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
