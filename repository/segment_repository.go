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
	ErrSegmentNotFound      = errors.New("segment not found")
	ErrSegmentAlreadyExists = errors.New("segment already exists")
)

// SegmentRepository defines the interface for interacting with segment data
type SegmentRepository interface {
	CreateSegment(ctx context.Context, segment *entity.Segment) (int64, error)
	GetSegmentByID(ctx context.Context, id int64) (*entity.Segment, error)
	GetSegmentByKey(ctx context.Context, projectID int64, key string) (*entity.Segment, error)
	ListSegments(ctx context.Context, projectID int64) ([]*entity.Segment, error)
	UpdateSegment(ctx context.Context, segment *entity.Segment) error
	DeleteSegment(ctx context.Context, id int64) error
}

type pgSegmentRepository struct {
	db *sqlx.DB
}

func NewSegmentRepository(db *sqlx.DB) SegmentRepository {
	return &pgSegmentRepository{db: db}
}

func (r *pgSegmentRepository) CreateSegment(ctx context.Context, segment *entity.Segment) (int64, error) {
	// Keys are unique within a project
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM segments WHERE project_id = $1 AND key = $2", segment.ProjectID, segment.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to check segment existence: %w", err)
	}
	if count > 0 {
		return 0, ErrSegmentAlreadyExists
	}

	query := `INSERT INTO segments (project_id, key, name, description, rules) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var segmentID int64
	err = r.db.QueryRowContext(ctx, query,
		segment.ProjectID, segment.Key, segment.Name, segment.Description, segment.Rules,
	).Scan(&segmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create segment: %w", err)
	}
	return segmentID, nil
}

func (r *pgSegmentRepository) GetSegmentByID(ctx context.Context, id int64) (*entity.Segment, error) {
	var segment entity.Segment
	query := `SELECT id, project_id, key, name, description, rules, created_at, updated_at FROM segments WHERE id = $1`
	err := r.db.GetContext(ctx, &segment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to get segment by ID: %w", err)
	}
	return &segment, nil
}

func (r *pgSegmentRepository) GetSegmentByKey(ctx context.Context, projectID int64, key string) (*entity.Segment, error) {
	var segment entity.Segment
	query := `SELECT id, project_id, key, name, description, rules, created_at, updated_at
		FROM segments WHERE project_id = $1 AND key = $2`
	err := r.db.GetContext(ctx, &segment, query, projectID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("failed to get segment by key: %w", err)
	}
	return &segment, nil
}

func (r *pgSegmentRepository) ListSegments(ctx context.Context, projectID int64) ([]*entity.Segment, error) {
	var segments []*entity.Segment
	query := `SELECT id, project_id, key, name, description, rules, created_at, updated_at
		FROM segments WHERE project_id = $1 ORDER BY key`
	err := r.db.SelectContext(ctx, &segments, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

func (r *pgSegmentRepository) UpdateSegment(ctx context.Context, segment *entity.Segment) error {
	query := `UPDATE segments SET name = $1, description = $2, rules = $3, updated_at = NOW() WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, segment.Name, segment.Description, segment.Rules, segment.ID)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSegmentNotFound
	}

	return nil
}

func (r *pgSegmentRepository) DeleteSegment(ctx context.Context, id int64) error {
	// Targeting entries referencing this segment are left in place;
	// evaluation skips unresolved segment references.
	result, err := r.db.ExecContext(ctx, `DELETE FROM segments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSegmentNotFound
	}

	return nil
}
