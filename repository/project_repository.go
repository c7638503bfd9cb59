package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flagbase/entity"

	"github.com/jmoiron/sqlx"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectAlreadyExists = errors.New("project already exists")
)

// ProjectRepository defines the interface for interacting with project data
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *entity.Project) (int64, error)
	GetProjectByID(ctx context.Context, id int64) (*entity.Project, error)
	GetProjectByKey(ctx context.Context, key string) (*entity.Project, error)
	ListProjects(ctx context.Context) ([]*entity.Project, error)
	UpdateProject(ctx context.Context, id int64, name, description string) error
	DeleteProject(ctx context.Context, id int64) error
	AddMember(ctx context.Context, projectID int64, userID string) error
	RemoveMember(ctx context.Context, projectID int64, userID string) error
	ListMembers(ctx context.Context, projectID int64) ([]string, error)
}

type pgProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) ProjectRepository {
	return &pgProjectRepository{db: db}
}

func (r *pgProjectRepository) CreateProject(ctx context.Context, project *entity.Project) (int64, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM projects WHERE key = $1", project.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to check project existence: %w", err)
	}
	if count > 0 {
		return 0, ErrProjectAlreadyExists
	}

	query := `INSERT INTO projects (key, name, description) VALUES ($1, $2, $3) RETURNING id`
	var projectID int64
	err = r.db.QueryRowContext(ctx, query, project.Key, project.Name, project.Description).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}
	return projectID, nil
}

func (r *pgProjectRepository) GetProjectByID(ctx context.Context, id int64) (*entity.Project, error) {
	var project entity.Project
	query := `SELECT id, key, name, description, created_at, updated_at FROM projects WHERE id = $1`
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}

	members, err := r.ListMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.Members = members

	return &project, nil
}

func (r *pgProjectRepository) GetProjectByKey(ctx context.Context, key string) (*entity.Project, error) {
	var project entity.Project
	query := `SELECT id, key, name, description, created_at, updated_at FROM projects WHERE key = $1`
	err := r.db.GetContext(ctx, &project, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by key: %w", err)
	}

	members, err := r.ListMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.Members = members

	return &project, nil
}

func (r *pgProjectRepository) ListProjects(ctx context.Context) ([]*entity.Project, error) {
	var projects []*entity.Project
	query := `SELECT id, key, name, description, created_at, updated_at FROM projects ORDER BY key`
	err := r.db.SelectContext(ctx, &projects, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *pgProjectRepository) UpdateProject(ctx context.Context, id int64, name, description string) error {
	query := `UPDATE projects SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, name, description, id)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func (r *pgProjectRepository) DeleteProject(ctx context.Context, id int64) error {
	// Environments, flags, states and segments go with the project via
	// ON DELETE CASCADE foreign keys.
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func (r *pgProjectRepository) AddMember(ctx context.Context, projectID int64, userID string) error {
	query := `INSERT INTO project_members (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to add project member: %w", err)
	}
	return nil
}

func (r *pgProjectRepository) RemoveMember(ctx context.Context, projectID int64, userID string) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	return nil
}

func (r *pgProjectRepository) ListMembers(ctx context.Context, projectID int64) ([]string, error) {
	var members []string
	query := `SELECT user_id FROM project_members WHERE project_id = $1 ORDER BY user_id`
	err := r.db.SelectContext(ctx, &members, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}
