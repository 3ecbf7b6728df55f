package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/pkg/clock"
)

type Service struct {
	repo  repository.AuditRepository
	clock clock.Clock
}

func NewService(repo repository.AuditRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

type LogOptions struct {
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry
func (s *Service) Log(ctx context.Context, userID, action, entityType, entityID string, opts *LogOptions) error {
	if opts == nil {
		opts = &LogOptions{}
	}

	var metadata json.RawMessage
	if opts.Metadata != nil {
		raw, err := json.Marshal(opts.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = raw
	}

	opts = withRequestInfo(ctx, opts)

	log := &model.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		IPAddress:  opts.IPAddress,
		UserAgent:  opts.UserAgent,
		CreatedAt:  s.clock.Now(),
	}

	return s.repo.Create(ctx, log)
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

type requestInfoKey struct{}

type requestInfo struct {
	ipAddress string
	userAgent string
}

// ContextWithRequestInfo attaches the caller's network identity so audit
// entries written deeper in the stack can record it.
func ContextWithRequestInfo(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ipAddress: ipAddress, userAgent: userAgent})
}

// withRequestInfo fills IP and User Agent from ctx if not provided in opts.
func withRequestInfo(ctx context.Context, opts *LogOptions) *LogOptions {
	if opts == nil {
		opts = &LogOptions{}
	}
	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	if !ok || opts.IPAddress != "" {
		return opts
	}
	cp := *opts
	cp.IPAddress = info.ipAddress
	cp.UserAgent = info.userAgent
	return &cp
}
