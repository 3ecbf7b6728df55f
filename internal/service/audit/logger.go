package audit

import (
	"context"
	"sync"

	"github.com/jwalitptl/conference-api/pkg/logger"
)

// Logger is the fire-and-forget audit sink handed to other services.
type Logger interface {
	Log(ctx context.Context, userID, action, entityType, entityID string, opts *LogOptions)
}

type AuditLogger struct {
	service *Service
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewAuditLogger(service *Service, log *logger.Logger) *AuditLogger {
	return &AuditLogger{
		service: service,
		log:     log,
	}
}

// Log writes the entry on a separate goroutine. The caller's cancellation
// does not abort the write.
func (l *AuditLogger) Log(ctx context.Context, userID, action, entityType, entityID string, opts *LogOptions) {
	opts = withRequestInfo(ctx, opts)
	ctx = context.WithoutCancel(ctx)
	l.wg.Add(1)

	// Async logging
	go func() {
		defer l.wg.Done()
		if err := l.service.Log(ctx, userID, action, entityType, entityID, opts); err != nil {
			l.log.Error(err, "failed to write audit log",
				"user_id", userID,
				"action", action,
				"entity_type", entityType,
				"entity_id", entityID,
			)
		}
	}()
}

// Wait blocks until every pending asynchronous write finished.
func (l *AuditLogger) Wait() {
	l.wg.Wait()
}
