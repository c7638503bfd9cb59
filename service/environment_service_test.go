package service

import (
	"context"
	"testing"

	"flagbase/repository"
	"flagbase/test"
	"flagbase/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnvironmentService(testDB *test.TestDB) EnvironmentService {
	projectRepo := repository.NewProjectRepository(testDB.DB)
	envRepo := repository.NewEnvironmentRepository(testDB.DB)
	flagRepo := repository.NewFlagRepository(testDB.DB)
	auditRepo := repository.NewAuditRepository(testDB.DB)
	log := test.GetTestLogger()
	return NewEnvironmentService(projectRepo, envRepo, flagRepo, auditRepo, nil, log)
}

func TestEnvironmentService_CreateEnvironment(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, _ := testDB.CreateTestProject(t, "mobile")
	service := newEnvironmentService(testDB)
	flagService := newFlagService(testDB)
	flagRepo := repository.NewFlagRepository(testDB.DB)

	t.Run("new environment backfills disabled flag states", func(t *testing.T) {
		flag, err := flagService.CreateFlag(context.Background(), project.Key,
			validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout"}, "test_user")
		require.NoError(t, err)

		env, err := service.CreateEnvironment(context.Background(), project.Key,
			validator.EnvironmentCreateRequest{Key: "qa", Name: "QA"}, "test_user")
		require.NoError(t, err)

		state, err := flagRepo.GetFlagState(context.Background(), flag.ID, env.ID)
		require.NoError(t, err)
		assert.False(t, state.IsEnabled)
	})

	t.Run("duplicate key within the project", func(t *testing.T) {
		_, err := service.CreateEnvironment(context.Background(), project.Key,
			validator.EnvironmentCreateRequest{Key: "qa", Name: "QA Again"}, "test_user")
		assert.ErrorIs(t, err, ErrEnvironmentAlreadyExists)
	})

	t.Run("same key in another project is fine", func(t *testing.T) {
		other, _ := testDB.CreateTestProject(t, "other")

		env, err := service.CreateEnvironment(context.Background(), other.Key,
			validator.EnvironmentCreateRequest{Key: "qa", Name: "QA"}, "test_user")
		require.NoError(t, err)
		assert.Equal(t, "qa", env.Key)
	})
}

func TestEnvironmentService_DeleteEnvironment(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, _ := testDB.CreateTestProject(t, "mobile")
	service := newEnvironmentService(testDB)
	flagService := newFlagService(testDB)
	flagRepo := repository.NewFlagRepository(testDB.DB)

	flag, err := flagService.CreateFlag(context.Background(), project.Key,
		validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout"}, "test_user")
	require.NoError(t, err)

	env, err := service.CreateEnvironment(context.Background(), project.Key,
		validator.EnvironmentCreateRequest{Key: "qa", Name: "QA"}, "test_user")
	require.NoError(t, err)

	require.NoError(t, service.DeleteEnvironment(context.Background(), project.Key, env.Key, "test_user"))

	_, err = service.GetEnvironment(context.Background(), project.Key, env.Key)
	assert.ErrorIs(t, err, ErrEnvironmentNotFound)

	// The environment's flag states go with it
	_, err = flagRepo.GetFlagState(context.Background(), flag.ID, env.ID)
	assert.ErrorIs(t, err, repository.ErrFlagStateNotFound)
}
