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
	ErrEnvironmentNotFound      = errors.New("environment not found")
	ErrEnvironmentAlreadyExists = errors.New("environment already exists")
)

// EnvironmentRepository defines the interface for interacting with environment data
type EnvironmentRepository interface {
	CreateEnvironment(ctx context.Context, env *entity.Environment) (int64, error)
	GetEnvironmentByID(ctx context.Context, id int64) (*entity.Environment, error)
	GetEnvironmentByKey(ctx context.Context, projectID int64, key string) (*entity.Environment, error)
	ListEnvironments(ctx context.Context, projectID int64) ([]*entity.Environment, error)
	UpdateEnvironment(ctx context.Context, id int64, name string) error
	DeleteEnvironment(ctx context.Context, id int64) error
}

type pgEnvironmentRepository struct {
	db *sqlx.DB
}

func NewEnvironmentRepository(db *sqlx.DB) EnvironmentRepository {
	return &pgEnvironmentRepository{db: db}
}

func (r *pgEnvironmentRepository) CreateEnvironment(ctx context.Context, env *entity.Environment) (int64, error) {
	// Keys are unique within a project, not globally
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM environments WHERE project_id = $1 AND key = $2", env.ProjectID, env.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to check environment existence: %w", err)
	}
	if count > 0 {
		return 0, ErrEnvironmentAlreadyExists
	}

	query := `INSERT INTO environments (project_id, key, name) VALUES ($1, $2, $3) RETURNING id`
	var envID int64
	err = r.db.QueryRowContext(ctx, query, env.ProjectID, env.Key, env.Name).Scan(&envID)
	if err != nil {
		return 0, fmt.Errorf("failed to create environment: %w", err)
	}
	return envID, nil
}

func (r *pgEnvironmentRepository) GetEnvironmentByID(ctx context.Context, id int64) (*entity.Environment, error) {
	var env entity.Environment
	query := `SELECT id, project_id, key, name, created_at, updated_at FROM environments WHERE id = $1`
	err := r.db.GetContext(ctx, &env, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("failed to get environment by ID: %w", err)
	}
	return &env, nil
}

func (r *pgEnvironmentRepository) GetEnvironmentByKey(ctx context.Context, projectID int64, key string) (*entity.Environment, error) {
	var env entity.Environment
	query := `SELECT id, project_id, key, name, created_at, updated_at FROM environments WHERE project_id = $1 AND key = $2`
	err := r.db.GetContext(ctx, &env, query, projectID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("failed to get environment by key: %w", err)
	}
	return &env, nil
}

func (r *pgEnvironmentRepository) ListEnvironments(ctx context.Context, projectID int64) ([]*entity.Environment, error) {
	var envs []*entity.Environment
	query := `SELECT id, project_id, key, name, created_at, updated_at FROM environments WHERE project_id = $1 ORDER BY id`
	err := r.db.SelectContext(ctx, &envs, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	return envs, nil
}

func (r *pgEnvironmentRepository) UpdateEnvironment(ctx context.Context, id int64, name string) error {
	query := `UPDATE environments SET name = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, name, id)
	if err != nil {
		return fmt.Errorf("failed to update environment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrEnvironmentNotFound
	}

	return nil
}

func (r *pgEnvironmentRepository) DeleteEnvironment(ctx context.Context, id int64) error {
	// Flag states for this environment go with it via ON DELETE CASCADE
	result, err := r.db.ExecContext(ctx, `DELETE FROM environments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete environment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrEnvironmentNotFound
	}

	return nil
}
