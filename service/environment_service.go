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
	ErrEnvironmentNotFound      = errors.New("environment not found")
	ErrEnvironmentAlreadyExists = errors.New("environment already exists")
)

// EnvironmentService defines the interface for environment business logic
type EnvironmentService interface {
	CreateEnvironment(ctx context.Context, projectKey string, req validator.EnvironmentCreateRequest, actor string) (*entity.Environment, error)
	GetEnvironment(ctx context.Context, projectKey, envKey string) (*entity.Environment, error)
	ListEnvironments(ctx context.Context, projectKey string) ([]*entity.Environment, error)
	UpdateEnvironment(ctx context.Context, projectKey, envKey string, req validator.EnvironmentUpdateRequest, actor string) (*entity.Environment, error)
	DeleteEnvironment(ctx context.Context, projectKey, envKey, actor string) error
}

type environmentService struct {
	projectRepo repository.ProjectRepository
	envRepo     repository.EnvironmentRepository
	flagRepo    repository.FlagRepository
	auditRepo   repository.AuditRepository
	snapshots   *cache.SnapshotCache
	logger      *logger.Logger
}

func NewEnvironmentService(
	projectRepo repository.ProjectRepository,
	envRepo repository.EnvironmentRepository,
	flagRepo repository.FlagRepository,
	auditRepo repository.AuditRepository,
	snapshots *cache.SnapshotCache,
	log *logger.Logger,
) EnvironmentService {
	return &environmentService{
		projectRepo: projectRepo,
		envRepo:     envRepo,
		flagRepo:    flagRepo,
		auditRepo:   auditRepo,
		snapshots:   snapshots,
		logger:      log,
	}
}

func (s *environmentService) CreateEnvironment(ctx context.Context, projectKey string, req validator.EnvironmentCreateRequest, actor string) (*entity.Environment, error) {
	if err := validator.ValidateEnvironmentCreateRequest(req); err != nil {
		s.logger.Warnw("Invalid environment creation request", "error", err, "actor", actor)
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	env := &entity.Environment{
		ProjectID: project.ID,
		Key:       req.Key,
		Name:      req.Name,
	}

	envID, err := s.envRepo.CreateEnvironment(ctx, env)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentAlreadyExists) {
			return nil, ErrEnvironmentAlreadyExists
		}
		s.logger.Errorw("Failed to create environment", "error", err, "projectID", project.ID, "key", req.Key)
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	env.ID = envID

	// Flag states exist in lockstep with flag x environment pairs, so a
	// new environment gets a disabled state for every existing flag.
	flags, err := s.flagRepo.ListFlags(ctx, project.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags for state backfill: %w", err)
	}
	for _, flag := range flags {
		state := &entity.FlagState{
			FlagID:        flag.ID,
			EnvironmentID: envID,
			IsEnabled:     false,
		}
		if _, err := s.flagRepo.CreateFlagState(ctx, state); err != nil {
			s.logger.Errorw("Failed to backfill flag state", "error", err, "flagID", flag.ID, "environmentID", envID)
			return nil, fmt.Errorf("failed to backfill flag state: %w", err)
		}
	}

	auditLog := entity.NewAuditLog(entity.EntityEnvironment, envID, entity.ActionCreate, actor,
		entity.AuditPayload{"project": projectKey, "key": req.Key})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "environmentID", envID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Environment created successfully", "environmentID", envID, "projectID", project.ID, "key", req.Key, "actor", actor)
	return env, nil
}

func (s *environmentService) GetEnvironment(ctx context.Context, projectKey, envKey string) (*entity.Environment, error) {
	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	env, err := s.envRepo.GetEnvironmentByKey(ctx, project.ID, envKey)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}
	return env, nil
}

func (s *environmentService) ListEnvironments(ctx context.Context, projectKey string) ([]*entity.Environment, error) {
	project, err := s.resolveProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	envs, err := s.envRepo.ListEnvironments(ctx, project.ID)
	if err != nil {
		s.logger.Errorw("Failed to list environments", "error", err, "projectID", project.ID)
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	return envs, nil
}

func (s *environmentService) UpdateEnvironment(ctx context.Context, projectKey, envKey string, req validator.EnvironmentUpdateRequest, actor string) (*entity.Environment, error) {
	if err := validator.ValidateEnvironmentUpdateRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	env, err := s.GetEnvironment(ctx, projectKey, envKey)
	if err != nil {
		return nil, err
	}

	if err := s.envRepo.UpdateEnvironment(ctx, env.ID, req.Name); err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return nil, ErrEnvironmentNotFound
		}
		s.logger.Errorw("Failed to update environment", "error", err, "environmentID", env.ID)
		return nil, fmt.Errorf("failed to update environment: %w", err)
	}
	env.Name = req.Name

	auditLog := entity.NewAuditLog(entity.EntityEnvironment, env.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"name": req.Name})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "environmentID", env.ID)
	}

	s.logger.Infow("Environment updated successfully", "environmentID", env.ID, "actor", actor)
	return env, nil
}

func (s *environmentService) DeleteEnvironment(ctx context.Context, projectKey, envKey, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	env, err := s.GetEnvironment(ctx, projectKey, envKey)
	if err != nil {
		return err
	}

	if err := s.envRepo.DeleteEnvironment(ctx, env.ID); err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return ErrEnvironmentNotFound
		}
		s.logger.Errorw("Failed to delete environment", "error", err, "environmentID", env.ID)
		return fmt.Errorf("failed to delete environment: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityEnvironment, env.ID, entity.ActionDelete, actor,
		entity.AuditPayload{"project": projectKey, "key": envKey})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "environmentID", env.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Environment deleted successfully", "environmentID", env.ID, "key", envKey, "actor", actor)
	return nil
}

func (s *environmentService) resolveProject(ctx context.Context, projectKey string) (*entity.Project, error) {
	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}
