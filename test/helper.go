package test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"flagbase/entity"
	"flagbase/migrations"
	"flagbase/pkg/logger"
	"flagbase/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// TestDB wraps a test database connection
type TestDB struct {
	DB *sqlx.DB
}

// SetupTestDB creates a test database and runs migrations
func SetupTestDB(t *testing.T) *TestDB {
	// Use environment variables or defaults for test database
	host := getEnvOrDefault("TEST_DB_HOST", "localhost")
	port := getEnvOrDefault("TEST_DB_PORT", "5432")
	user := getEnvOrDefault("TEST_DB_USER", "flagbase")
	password := getEnvOrDefault("TEST_DB_PASSWORD", "flagbase")

	// Get base database name and add _test suffix
	baseDBName := getEnvOrDefault("POSTGRES_DB", "flagbase")
	dbName := getEnvOrDefault("TEST_DB_NAME", baseDBName+"_test")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbName)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err, "Failed to connect to test database")

	// Run migrations - check multiple possible paths
	migrationPaths := []string{"./migrations", "../migrations", "/app/migrations"}
	for _, path := range migrationPaths {
		err = migrations.RunMigrations(db.DB, path)
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "Failed to run test migrations")

	return &TestDB{DB: db}
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
}

// CleanTables removes all data from tables (for test isolation)
func (tdb *TestDB) CleanTables(t *testing.T) {
	_, err := tdb.DB.Exec(`TRUNCATE TABLE audit_logs, flag_states, segments, feature_flags,
		environments, project_members, projects RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "Failed to clean test tables")
}

// CreateTestProject creates a project with a single environment
func (tdb *TestDB) CreateTestProject(t *testing.T, key string) (*entity.Project, *entity.Environment) {
	projectRepo := repository.NewProjectRepository(tdb.DB)
	envRepo := repository.NewEnvironmentRepository(tdb.DB)

	project := &entity.Project{Key: key, Name: key}
	projectID, err := projectRepo.CreateProject(context.Background(), project)
	require.NoError(t, err, "Failed to create test project")
	project.ID = projectID

	env := &entity.Environment{ProjectID: projectID, Key: "production", Name: "Production"}
	envID, err := envRepo.CreateEnvironment(context.Background(), env)
	require.NoError(t, err, "Failed to create test environment")
	env.ID = envID

	return project, env
}

// CreateTestFlag creates a boolean flag with the canonical variations and a
// disabled state in the given environment
func (tdb *TestDB) CreateTestFlag(t *testing.T, projectID, envID int64, key string) *entity.FeatureFlag {
	flagRepo := repository.NewFlagRepository(tdb.DB)

	flag := &entity.FeatureFlag{
		ProjectID:    projectID,
		Key:          key,
		Name:         key,
		Type:         entity.FlagTypeBoolean,
		DefaultValue: "false",
		Variations: entity.Variations{
			{ID: "var-true", Name: entity.BooleanVariationTrueName, Value: entity.BooleanVariationTrueValue},
			{ID: "var-false", Name: entity.BooleanVariationFalseName, Value: entity.BooleanVariationFalseValue},
		},
	}
	flagID, err := flagRepo.CreateFlag(context.Background(), flag)
	require.NoError(t, err, "Failed to create test flag")
	flag.ID = flagID

	_, err = flagRepo.CreateFlagState(context.Background(), &entity.FlagState{
		FlagID:        flagID,
		EnvironmentID: envID,
	})
	require.NoError(t, err, "Failed to create test flag state")

	return flag
}

// CreateTestSegment creates a segment with the given membership rules
func (tdb *TestDB) CreateTestSegment(t *testing.T, projectID int64, key string, rules entity.SegmentRules) *entity.Segment {
	segmentRepo := repository.NewSegmentRepository(tdb.DB)

	segment := &entity.Segment{
		ProjectID: projectID,
		Key:       key,
		Name:      key,
		Rules:     rules,
	}
	segmentID, err := segmentRepo.CreateSegment(context.Background(), segment)
	require.NoError(t, err, "Failed to create test segment")
	segment.ID = segmentID

	return segment
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}

// AssertFlagEnabled asserts the enabled bit of a flag state
func (tdb *TestDB) AssertFlagEnabled(t *testing.T, flagID, envID int64, expected bool) {
	flagRepo := repository.NewFlagRepository(tdb.DB)
	state, err := flagRepo.GetFlagState(context.Background(), flagID, envID)
	require.NoError(t, err, "Failed to get flag state for assertion")
	require.Equal(t, expected, state.IsEnabled, "Flag state enabled mismatch")
}

// AssertAuditLogExists asserts that an audit log entry exists for an entity
func (tdb *TestDB) AssertAuditLogExists(t *testing.T, auditEntity entity.AuditEntity, entityID int64, action entity.AuditAction, actor string) {
	auditRepo := repository.NewAuditRepository(tdb.DB)
	logs, err := auditRepo.ListAuditLogsByEntity(context.Background(), auditEntity, entityID)
	require.NoError(t, err, "Failed to get audit logs")

	found := false
	for _, log := range logs {
		if log.Action == action && log.Actor == actor {
			found = true
			break
		}
	}
	require.True(t, found, "Expected audit log not found: entity=%s, action=%s, actor=%s", auditEntity, action, actor)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
