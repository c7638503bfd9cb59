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
	ErrFlagNotFound      = errors.New("flag not found")
	ErrFlagAlreadyExists = errors.New("flag already exists")
	ErrFlagStateNotFound = errors.New("flag state not found")
)

// FlagRepository defines the interface for interacting with feature flag
// and flag state data. Flag states are managed here rather than in their
// own repository because they only exist in lockstep with flags.
type FlagRepository interface {
	CreateFlag(ctx context.Context, flag *entity.FeatureFlag) (int64, error)
	GetFlagByID(ctx context.Context, id int64) (*entity.FeatureFlag, error)
	GetFlagByKey(ctx context.Context, key string) (*entity.FeatureFlag, error)
	ListFlags(ctx context.Context, projectID int64, includeArchived bool) ([]*entity.FeatureFlag, error)
	UpdateFlag(ctx context.Context, flag *entity.FeatureFlag) error
	SetArchived(ctx context.Context, id int64, archived bool) error
	DeleteFlag(ctx context.Context, id int64) error

	CreateFlagState(ctx context.Context, state *entity.FlagState) (int64, error)
	GetFlagState(ctx context.Context, flagID, environmentID int64) (*entity.FlagState, error)
	ListFlagStates(ctx context.Context, flagID int64) ([]*entity.FlagState, error)
	UpdateFlagState(ctx context.Context, state *entity.FlagState) error
}

type pgFlagRepository struct {
	db *sqlx.DB
}

func NewFlagRepository(db *sqlx.DB) FlagRepository {
	return &pgFlagRepository{db: db}
}

func (r *pgFlagRepository) CreateFlag(ctx context.Context, flag *entity.FeatureFlag) (int64, error) {
	// Flag keys are globally unique, not just within the project
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM feature_flags WHERE key = $1", flag.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to check flag existence: %w", err)
	}
	if count > 0 {
		return 0, ErrFlagAlreadyExists
	}

	query := `INSERT INTO feature_flags (project_id, key, name, description, type, default_value, variations)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var flagID int64
	err = r.db.QueryRowContext(ctx, query,
		flag.ProjectID, flag.Key, flag.Name, flag.Description, flag.Type, flag.DefaultValue, flag.Variations,
	).Scan(&flagID)
	if err != nil {
		return 0, fmt.Errorf("failed to create flag: %w", err)
	}
	return flagID, nil
}

func (r *pgFlagRepository) GetFlagByID(ctx context.Context, id int64) (*entity.FeatureFlag, error) {
	var flag entity.FeatureFlag
	query := `SELECT id, project_id, key, name, description, type, default_value, variations, is_archived, created_at, updated_at
		FROM feature_flags WHERE id = $1`
	err := r.db.GetContext(ctx, &flag, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get flag by ID: %w", err)
	}
	return &flag, nil
}

func (r *pgFlagRepository) GetFlagByKey(ctx context.Context, key string) (*entity.FeatureFlag, error) {
	var flag entity.FeatureFlag
	query := `SELECT id, project_id, key, name, description, type, default_value, variations, is_archived, created_at, updated_at
		FROM feature_flags WHERE key = $1`
	err := r.db.GetContext(ctx, &flag, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get flag by key: %w", err)
	}
	return &flag, nil
}

func (r *pgFlagRepository) ListFlags(ctx context.Context, projectID int64, includeArchived bool) ([]*entity.FeatureFlag, error) {
	var flags []*entity.FeatureFlag
	query := `SELECT id, project_id, key, name, description, type, default_value, variations, is_archived, created_at, updated_at
		FROM feature_flags WHERE project_id = $1`
	if !includeArchived {
		query += ` AND is_archived = FALSE`
	}
	query += ` ORDER BY key`

	err := r.db.SelectContext(ctx, &flags, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}

func (r *pgFlagRepository) UpdateFlag(ctx context.Context, flag *entity.FeatureFlag) error {
	query := `UPDATE feature_flags SET name = $1, description = $2, default_value = $3, variations = $4, updated_at = NOW()
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, flag.Name, flag.Description, flag.DefaultValue, flag.Variations, flag.ID)
	if err != nil {
		return fmt.Errorf("failed to update flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFlagNotFound
	}

	return nil
}

func (r *pgFlagRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	query := `UPDATE feature_flags SET is_archived = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, archived, id)
	if err != nil {
		return fmt.Errorf("failed to update flag archive state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFlagNotFound
	}

	return nil
}

func (r *pgFlagRepository) DeleteFlag(ctx context.Context, id int64) error {
	// Flag states go with the flag via ON DELETE CASCADE
	result, err := r.db.ExecContext(ctx, `DELETE FROM feature_flags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFlagNotFound
	}

	return nil
}

func (r *pgFlagRepository) CreateFlagState(ctx context.Context, state *entity.FlagState) (int64, error) {
	query := `INSERT INTO flag_states (flag_id, environment_id, is_enabled, rules)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (flag_id, environment_id) DO NOTHING
		RETURNING id`
	var stateID int64
	err := r.db.QueryRowContext(ctx, query, state.FlagID, state.EnvironmentID, state.IsEnabled, state.Rules).Scan(&stateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Row already exists; the flag x environment pairing is
			// system-managed, so this is not an error.
			existing, getErr := r.GetFlagState(ctx, state.FlagID, state.EnvironmentID)
			if getErr != nil {
				return 0, getErr
			}
			return existing.ID, nil
		}
		return 0, fmt.Errorf("failed to create flag state: %w", err)
	}
	return stateID, nil
}

func (r *pgFlagRepository) GetFlagState(ctx context.Context, flagID, environmentID int64) (*entity.FlagState, error) {
	var state entity.FlagState
	query := `SELECT id, flag_id, environment_id, is_enabled, rules, created_at, updated_at
		FROM flag_states WHERE flag_id = $1 AND environment_id = $2`
	err := r.db.GetContext(ctx, &state, query, flagID, environmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlagStateNotFound
		}
		return nil, fmt.Errorf("failed to get flag state: %w", err)
	}
	return &state, nil
}

func (r *pgFlagRepository) ListFlagStates(ctx context.Context, flagID int64) ([]*entity.FlagState, error) {
	var states []*entity.FlagState
	query := `SELECT id, flag_id, environment_id, is_enabled, rules, created_at, updated_at
		FROM flag_states WHERE flag_id = $1 ORDER BY environment_id`
	err := r.db.SelectContext(ctx, &states, query, flagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flag states: %w", err)
	}
	return states, nil
}

func (r *pgFlagRepository) UpdateFlagState(ctx context.Context, state *entity.FlagState) error {
	query := `UPDATE flag_states SET is_enabled = $1, rules = $2, updated_at = NOW()
		WHERE flag_id = $3 AND environment_id = $4`
	result, err := r.db.ExecContext(ctx, query, state.IsEnabled, state.Rules, state.FlagID, state.EnvironmentID)
	if err != nil {
		return fmt.Errorf("failed to update flag state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrFlagStateNotFound
	}

	return nil
}
