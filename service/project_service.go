package service

import (
	"context"
	"errors"
	"fmt"

	"flagbase/entity"
	"flagbase/pkg/logger"
	"flagbase/repository"
	"flagbase/validator"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectAlreadyExists = errors.New("project already exists")
)

// ProjectService defines the interface for project business logic
type ProjectService interface {
	CreateProject(ctx context.Context, req validator.ProjectCreateRequest, actor string) (*entity.Project, error)
	GetProject(ctx context.Context, key string) (*entity.Project, error)
	ListProjects(ctx context.Context) ([]*entity.Project, error)
	UpdateProject(ctx context.Context, key string, req validator.ProjectUpdateRequest, actor string) (*entity.Project, error)
	DeleteProject(ctx context.Context, key string, actor string) error
	AddMember(ctx context.Context, key string, req validator.ProjectMemberRequest, actor string) error
	RemoveMember(ctx context.Context, key, userID, actor string) error
	ListMembers(ctx context.Context, key string) ([]string, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	envRepo     repository.EnvironmentRepository
	auditRepo   repository.AuditRepository
	logger      *logger.Logger
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	envRepo repository.EnvironmentRepository,
	auditRepo repository.AuditRepository,
	log *logger.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		envRepo:     envRepo,
		auditRepo:   auditRepo,
		logger:      log,
	}
}

func (s *projectService) CreateProject(ctx context.Context, req validator.ProjectCreateRequest, actor string) (*entity.Project, error) {
	if err := validator.ValidateProjectCreateRequest(req); err != nil {
		s.logger.Warnw("Invalid project creation request", "error", err, "actor", actor)
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	project := &entity.Project{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
	}

	projectID, err := s.projectRepo.CreateProject(ctx, project)
	if err != nil {
		if errors.Is(err, repository.ErrProjectAlreadyExists) {
			return nil, ErrProjectAlreadyExists
		}
		s.logger.Errorw("Failed to create project", "error", err, "key", req.Key)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	project.ID = projectID

	// The creator owns the project
	if err := s.projectRepo.AddMember(ctx, projectID, actor); err != nil {
		s.logger.Warnw("Failed to add project creator as member", "error", err, "projectID", projectID)
	} else {
		project.Members = []string{actor}
	}

	// Every project starts with the three standard environments
	for _, env := range entity.DefaultEnvironments {
		environment := &entity.Environment{
			ProjectID: projectID,
			Key:       env.Key,
			Name:      env.Name,
		}
		if _, err := s.envRepo.CreateEnvironment(ctx, environment); err != nil {
			s.logger.Errorw("Failed to create default environment", "error", err, "projectID", projectID, "env", env.Key)
			return nil, fmt.Errorf("failed to create default environment %s: %w", env.Key, err)
		}
	}

	auditLog := entity.NewAuditLog(entity.EntityProject, projectID, entity.ActionCreate, actor,
		entity.AuditPayload{"key": req.Key, "name": req.Name})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "projectID", projectID)
	}

	s.logger.Infow("Project created successfully", "projectID", projectID, "key", req.Key, "actor", actor)
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, key string) (*entity.Project, error) {
	project, err := s.projectRepo.GetProjectByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context) ([]*entity.Project, error) {
	projects, err := s.projectRepo.ListProjects(ctx)
	if err != nil {
		s.logger.Errorw("Failed to list projects", "error", err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) UpdateProject(ctx context.Context, key string, req validator.ProjectUpdateRequest, actor string) (*entity.Project, error) {
	if err := validator.ValidateProjectUpdateRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	project, err := s.GetProject(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.projectRepo.UpdateProject(ctx, project.ID, req.Name, req.Description); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Errorw("Failed to update project", "error", err, "projectID", project.ID)
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	project.Name = req.Name
	project.Description = req.Description

	auditLog := entity.NewAuditLog(entity.EntityProject, project.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"name": req.Name})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "projectID", project.ID)
	}

	s.logger.Infow("Project updated successfully", "projectID", project.ID, "actor", actor)
	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, key string, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	project, err := s.GetProject(ctx, key)
	if err != nil {
		return err
	}

	if err := s.projectRepo.DeleteProject(ctx, project.ID); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		s.logger.Errorw("Failed to delete project", "error", err, "projectID", project.ID)
		return fmt.Errorf("failed to delete project: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityProject, project.ID, entity.ActionDelete, actor,
		entity.AuditPayload{"key": key})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "projectID", project.ID)
	}

	s.logger.Infow("Project deleted successfully", "projectID", project.ID, "key", key, "actor", actor)
	return nil
}

func (s *projectService) AddMember(ctx context.Context, key string, req validator.ProjectMemberRequest, actor string) error {
	if err := validator.ValidateProjectMemberRequest(req); err != nil {
		return err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	project, err := s.GetProject(ctx, key)
	if err != nil {
		return err
	}

	if err := s.projectRepo.AddMember(ctx, project.ID, req.UserID); err != nil {
		s.logger.Errorw("Failed to add project member", "error", err, "projectID", project.ID)
		return fmt.Errorf("failed to add project member: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityProject, project.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"member_added": req.UserID})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "projectID", project.ID)
	}

	return nil
}

func (s *projectService) RemoveMember(ctx context.Context, key, userID, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	project, err := s.GetProject(ctx, key)
	if err != nil {
		return err
	}

	if err := s.projectRepo.RemoveMember(ctx, project.ID, userID); err != nil {
		s.logger.Errorw("Failed to remove project member", "error", err, "projectID", project.ID)
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityProject, project.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"member_removed": userID})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "projectID", project.ID)
	}

	return nil
}

func (s *projectService) ListMembers(ctx context.Context, key string) ([]string, error) {
	project, err := s.GetProject(ctx, key)
	if err != nil {
		return nil, err
	}
	return project.Members, nil
}
