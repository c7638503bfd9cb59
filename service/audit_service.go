package service

import (
	"context"
	"fmt"

	"flagbase/entity"
	"flagbase/pkg/logger"
	"flagbase/repository"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditService exposes the read side of the audit trail. Entries are only
// ever written as side effects of mutating operations in other services.
type AuditService interface {
	ListAuditLogs(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error)
	ListAuditLogsByEntity(ctx context.Context, auditEntity entity.AuditEntity, entityID int64) ([]*entity.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	logger    *logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log *logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		logger:    log,
	}
}

func (s *auditService) ListAuditLogs(ctx context.Context, limit, offset int) ([]*entity.AuditLog, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.auditRepo.ListAllAuditLogs(ctx, limit, offset)
	if err != nil {
		s.logger.Errorw("Failed to list audit logs", "error", err)
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (s *auditService) ListAuditLogsByEntity(ctx context.Context, auditEntity entity.AuditEntity, entityID int64) ([]*entity.AuditLog, error) {
	logs, err := s.auditRepo.ListAuditLogsByEntity(ctx, auditEntity, entityID)
	if err != nil {
		s.logger.Errorw("Failed to list audit logs by entity", "error", err, "entity", auditEntity, "entityID", entityID)
		return nil, fmt.Errorf("failed to list audit logs by entity: %w", err)
	}
	return logs, nil
}
