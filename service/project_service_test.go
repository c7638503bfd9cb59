package service

import (
	"context"
	"testing"

	"flagbase/entity"
	"flagbase/repository"
	"flagbase/test"
	"flagbase/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectService(testDB *test.TestDB) ProjectService {
	projectRepo := repository.NewProjectRepository(testDB.DB)
	envRepo := repository.NewEnvironmentRepository(testDB.DB)
	auditRepo := repository.NewAuditRepository(testDB.DB)
	log := test.GetTestLogger()
	return NewProjectService(projectRepo, envRepo, auditRepo, log)
}

func TestProjectService_CreateProject(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	service := newProjectService(testDB)
	envRepo := repository.NewEnvironmentRepository(testDB.DB)

	t.Run("create project seeds default environments", func(t *testing.T) {
		req := validator.ProjectCreateRequest{Key: "mobile-app", Name: "Mobile App"}

		project, err := service.CreateProject(context.Background(), req, "test_user")

		require.NoError(t, err)
		assert.Equal(t, "mobile-app", project.Key)

		envs, err := envRepo.ListEnvironments(context.Background(), project.ID)
		require.NoError(t, err)
		require.Len(t, envs, len(entity.DefaultEnvironments))

		keys := make(map[string]bool)
		for _, env := range envs {
			keys[env.Key] = true
		}
		assert.True(t, keys["development"])
		assert.True(t, keys["staging"])
		assert.True(t, keys["production"])

		// The creating actor becomes the first member
		members, err := service.ListMembers(context.Background(), project.Key)
		require.NoError(t, err)
		assert.Contains(t, members, "test_user")

		testDB.AssertAuditLogExists(t, entity.EntityProject, project.ID, entity.ActionCreate, "test_user")
	})

	t.Run("duplicate key is rejected", func(t *testing.T) {
		req := validator.ProjectCreateRequest{Key: "mobile-app", Name: "Mobile App Again"}

		_, err := service.CreateProject(context.Background(), req, "test_user")

		assert.ErrorIs(t, err, ErrProjectAlreadyExists)
	})

	t.Run("invalid key is rejected before any write", func(t *testing.T) {
		req := validator.ProjectCreateRequest{Key: "Mobile App!", Name: "Mobile App"}

		_, err := service.CreateProject(context.Background(), req, "test_user")

		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})
}

func TestProjectService_Members(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	service := newProjectService(testDB)

	project, err := service.CreateProject(context.Background(),
		validator.ProjectCreateRequest{Key: "mobile-app", Name: "Mobile App"}, "owner")
	require.NoError(t, err)

	t.Run("add and remove a member", func(t *testing.T) {
		err := service.AddMember(context.Background(), project.Key,
			validator.ProjectMemberRequest{UserID: "alice"}, "owner")
		require.NoError(t, err)

		members, err := service.ListMembers(context.Background(), project.Key)
		require.NoError(t, err)
		assert.Contains(t, members, "alice")

		err = service.RemoveMember(context.Background(), project.Key, "alice", "owner")
		require.NoError(t, err)

		members, err = service.ListMembers(context.Background(), project.Key)
		require.NoError(t, err)
		assert.NotContains(t, members, "alice")
	})

	t.Run("unknown project", func(t *testing.T) {
		err := service.AddMember(context.Background(), "no-such-project",
			validator.ProjectMemberRequest{UserID: "alice"}, "owner")
		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestProjectService_Delete(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	service := newProjectService(testDB)

	project, err := service.CreateProject(context.Background(),
		validator.ProjectCreateRequest{Key: "short-lived", Name: "Short Lived"}, "owner")
	require.NoError(t, err)

	require.NoError(t, service.DeleteProject(context.Background(), project.Key, "owner"))

	_, err = service.GetProject(context.Background(), project.Key)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	// Environments go with the project
	envRepo := repository.NewEnvironmentRepository(testDB.DB)
	envs, err := envRepo.ListEnvironments(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Empty(t, envs)
}
