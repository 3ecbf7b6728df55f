package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/conference-api/internal/service/notification"
	"github.com/jwalitptl/conference-api/pkg/logger"
)

type Retrier interface {
	RetryFailed(ctx context.Context) (notification.RetryResult, error)
}

// NotificationRetryWorker periodically re-sends invitation emails whose last
// delivery attempt failed.
type NotificationRetryWorker struct {
	retrier  Retrier
	interval time.Duration
	log      *logger.Logger
}

func NewNotificationRetryWorker(retrier Retrier, interval time.Duration, log *logger.Logger) *NotificationRetryWorker {
	return &NotificationRetryWorker{
		retrier:  retrier,
		interval: interval,
		log:      log,
	}
}

func (w *NotificationRetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.retry(ctx); err != nil {
				// Log error but continue
				w.log.Error(err, "notification retry pass failed")
			}
		}
	}
}

func (w *NotificationRetryWorker) retry(ctx context.Context) error {
	result, err := w.retrier.RetryFailed(ctx)
	if err != nil {
		return fmt.Errorf("failed to retry notifications: %w", err)
	}

	if result.Attempted > 0 {
		w.log.Info("retried failed invitation notifications",
			"attempted", result.Attempted,
			"sent", result.Sent,
			"failed", result.Failed)
	}
	return nil
}
