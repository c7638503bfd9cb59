package service

import (
	"context"
	"errors"
	"fmt"

	"flagbase/cache"
	"flagbase/entity"
	"flagbase/pkg/logger"
	"flagbase/repository"
	"flagbase/validator"
)

var (
	ErrSegmentNotFound      = errors.New("segment not found")
	ErrSegmentAlreadyExists = errors.New("segment already exists")
)

// SegmentService defines the interface for segment business logic
type SegmentService interface {
	CreateSegment(ctx context.Context, projectKey string, req validator.SegmentCreateRequest, actor string) (*entity.Segment, error)
	GetSegment(ctx context.Context, projectKey, segmentKey string) (*entity.Segment, error)
	ListSegments(ctx context.Context, projectKey string) ([]*entity.Segment, error)
	UpdateSegment(ctx context.Context, projectKey, segmentKey string, req validator.SegmentUpdateRequest, actor string) (*entity.Segment, error)
	DeleteSegment(ctx context.Context, projectKey, segmentKey, actor string) error
}

type segmentService struct {
	projectRepo repository.ProjectRepository
	segmentRepo repository.SegmentRepository
	auditRepo   repository.AuditRepository
	snapshots   *cache.SnapshotCache
	logger      *logger.Logger
}

func NewSegmentService(
	projectRepo repository.ProjectRepository,
	segmentRepo repository.SegmentRepository,
	auditRepo repository.AuditRepository,
	snapshots *cache.SnapshotCache,
	log *logger.Logger,
) SegmentService {
	return &segmentService{
		projectRepo: projectRepo,
		segmentRepo: segmentRepo,
		auditRepo:   auditRepo,
		snapshots:   snapshots,
		logger:      log,
	}
}

func (s *segmentService) CreateSegment(ctx context.Context, projectKey string, req validator.SegmentCreateRequest, actor string) (*entity.Segment, error) {
	if err := validator.ValidateSegmentCreateRequest(req); err != nil {
		s.logger.Warnw("Invalid segment creation request", "error", err, "actor", actor)
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	segment := &entity.Segment{
		ProjectID:   project.ID,
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Rules:       validator.SegmentRulesToEntity(req.Rules),
	}

	segmentID, err := s.segmentRepo.CreateSegment(ctx, segment)
	if err != nil {
		if errors.Is(err, repository.ErrSegmentAlreadyExists) {
			return nil, ErrSegmentAlreadyExists
		}
		s.logger.Errorw("Failed to create segment", "error", err, "projectID", project.ID, "key", req.Key)
		return nil, fmt.Errorf("failed to create segment: %w", err)
	}
	segment.ID = segmentID

	auditLog := entity.NewAuditLog(entity.EntitySegment, segmentID, entity.ActionCreate, actor,
		entity.AuditPayload{"project": projectKey, "key": req.Key})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "segmentID", segmentID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Segment created successfully", "segmentID", segmentID, "key", req.Key, "actor", actor)
	return segment, nil
}

func (s *segmentService) GetSegment(ctx context.Context, projectKey, segmentKey string) (*entity.Segment, error) {
	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	segment, err := s.segmentRepo.GetSegmentByKey(ctx, project.ID, segmentKey)
	if err != nil {
		if errors.Is(err, repository.ErrSegmentNotFound) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return segment, nil
}

func (s *segmentService) ListSegments(ctx context.Context, projectKey string) ([]*entity.Segment, error) {
	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	segments, err := s.segmentRepo.ListSegments(ctx, project.ID)
	if err != nil {
		s.logger.Errorw("Failed to list segments", "error", err, "projectID", project.ID)
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

func (s *segmentService) UpdateSegment(ctx context.Context, projectKey, segmentKey string, req validator.SegmentUpdateRequest, actor string) (*entity.Segment, error) {
	if err := validator.ValidateSegmentUpdateRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	segment, err := s.GetSegment(ctx, projectKey, segmentKey)
	if err != nil {
		return nil, err
	}

	segment.Name = req.Name
	segment.Description = req.Description
	segment.Rules = validator.SegmentRulesToEntity(req.Rules)

	if err := s.segmentRepo.UpdateSegment(ctx, segment); err != nil {
		if errors.Is(err, repository.ErrSegmentNotFound) {
			return nil, ErrSegmentNotFound
		}
		s.logger.Errorw("Failed to update segment", "error", err, "segmentID", segment.ID)
		return nil, fmt.Errorf("failed to update segment: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntitySegment, segment.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"key": segmentKey})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "segmentID", segment.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Segment updated successfully", "segmentID", segment.ID, "actor", actor)
	return segment, nil
}

func (s *segmentService) DeleteSegment(ctx context.Context, projectKey, segmentKey, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	segment, err := s.GetSegment(ctx, projectKey, segmentKey)
	if err != nil {
		return err
	}

	if err := s.segmentRepo.DeleteSegment(ctx, segment.ID); err != nil {
		if errors.Is(err, repository.ErrSegmentNotFound) {
			return ErrSegmentNotFound
		}
		s.logger.Errorw("Failed to delete segment", "error", err, "segmentID", segment.ID)
		return fmt.Errorf("failed to delete segment: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntitySegment, segment.ID, entity.ActionDelete, actor,
		entity.AuditPayload{"key": segmentKey})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "segmentID", segment.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Segment deleted successfully", "segmentID", segment.ID, "key", segmentKey, "actor", actor)
	return nil
}

func (s *segmentService) resolveProject(ctx context.Context, projectKey string) (*entity.Project, error) {
	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}
