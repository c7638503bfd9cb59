package repository

import (
	"context"
	"fmt"

	"flagbase/entity"

	"github.com/jmoiron/sqlx"
)

// AuditRepository is append-only: entries are created and listed, never
// updated or deleted.
type AuditRepository interface {
	CreateAuditLog(ctx context.Context, log *entity.AuditLog) error
	ListAuditLogsByEntity(ctx context.Context, auditEntity entity.AuditEntity, entityID int64) ([]*entity.AuditLog, error)
	ListAllAuditLogs(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error)
}

type pgAuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &pgAuditRepository{db: db}
}

func (r *pgAuditRepository) CreateAuditLog(ctx context.Context, log *entity.AuditLog) error {
	query := `INSERT INTO audit_logs (action, entity, entity_id, actor, payload) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, log.Action, log.Entity, log.EntityID, log.Actor, log.Payload)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *pgAuditRepository) ListAuditLogsByEntity(ctx context.Context, auditEntity entity.AuditEntity, entityID int64) ([]*entity.AuditLog, error) {
	var logs []*entity.AuditLog
	query := `
		SELECT id, action, entity, entity_id, actor, payload, created_at
		FROM audit_logs
		WHERE entity = $1 AND entity_id = $2
		ORDER BY created_at DESC
	`
	err := r.db.SelectContext(ctx, &logs, query, auditEntity, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs by entity: %w", err)
	}
	return logs, nil
}

func (r *pgAuditRepository) ListAllAuditLogs(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error) {
	var logs []*entity.AuditLog
	query := `
		SELECT id, action, entity, entity_id, actor, payload, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	err := r.db.SelectContext(ctx, &logs, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list all audit logs: %w", err)
	}
	return logs, nil
}
