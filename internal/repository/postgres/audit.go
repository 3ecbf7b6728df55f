package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
        INSERT INTO audit_logs (
            id, user_id, action, entity_type, entity_id,
            metadata, ip_address, user_agent, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Metadata,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	query := `
        SELECT id, user_id, action, entity_type, entity_id, metadata, ip_address, user_agent, created_at
        FROM audit_logs WHERE 1=1
    `
	var args []interface{}

	if v, ok := filters["user_id"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}

	if v, ok := filters["action"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}

	if v, ok := filters["entity_id"]; ok {
		args = append(args, v)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	var logs []*model.AuditLog
	if err := r.GetDB().SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, nil
}
