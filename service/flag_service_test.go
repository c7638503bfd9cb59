package service

import (
	"context"
	"testing"

	"flagbase/entity"
	"flagbase/evaluation"
	"flagbase/repository"
	"flagbase/test"
	"flagbase/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagService(testDB *test.TestDB) FlagService {
	projectRepo := repository.NewProjectRepository(testDB.DB)
	envRepo := repository.NewEnvironmentRepository(testDB.DB)
	flagRepo := repository.NewFlagRepository(testDB.DB)
	segmentRepo := repository.NewSegmentRepository(testDB.DB)
	auditRepo := repository.NewAuditRepository(testDB.DB)
	log := test.GetTestLogger()
	return NewFlagService(projectRepo, envRepo, flagRepo, segmentRepo, auditRepo, nil, log)
}

func TestFlagService_CreateFlag(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, env := testDB.CreateTestProject(t, "mobile")
	service := newFlagService(testDB)
	flagRepo := repository.NewFlagRepository(testDB.DB)

	t.Run("boolean flag gets canonical variations and defaults", func(t *testing.T) {
		req := validator.FlagCreateRequest{
			Key:  "new_checkout",
			Name: "New Checkout",
		}

		flag, err := service.CreateFlag(context.Background(), project.Key, req, "test_user")

		require.NoError(t, err)
		assert.Equal(t, entity.FlagTypeBoolean, flag.Type)
		assert.Equal(t, "false", flag.DefaultValue)
		require.Len(t, flag.Variations, 2)
		assert.True(t, flag.Variations[0].IsCanonicalBoolean())
		assert.True(t, flag.Variations[1].IsCanonicalBoolean())

		// A disabled state exists for the project's environment
		state, err := flagRepo.GetFlagState(context.Background(), flag.ID, env.ID)
		require.NoError(t, err)
		assert.False(t, state.IsEnabled)

		testDB.AssertAuditLogExists(t, entity.EntityFlag, flag.ID, entity.ActionCreate, "test_user")
	})

	t.Run("duplicate key is rejected", func(t *testing.T) {
		req := validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout Again"}

		_, err := service.CreateFlag(context.Background(), project.Key, req, "test_user")

		assert.ErrorIs(t, err, ErrFlagAlreadyExists)
	})

	t.Run("typed flag validates variation values", func(t *testing.T) {
		req := validator.FlagCreateRequest{
			Key:          "request_limit",
			Name:         "Request Limit",
			Type:         "number",
			DefaultValue: "100",
			Variations: []validator.VariationRequest{
				{Name: "Low", Value: "100"},
				{Name: "High", Value: "not-a-number"},
			},
		}

		_, err := service.CreateFlag(context.Background(), project.Key, req, "test_user")

		assert.ErrorIs(t, err, evaluation.ErrInvalidVariationValue)
	})

	t.Run("unknown project", func(t *testing.T) {
		req := validator.FlagCreateRequest{Key: "orphan", Name: "Orphan"}

		_, err := service.CreateFlag(context.Background(), "no-such-project", req, "test_user")

		assert.ErrorIs(t, err, ErrProjectNotFound)
	})
}

func TestFlagService_Variations(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, env := testDB.CreateTestProject(t, "mobile")
	service := newFlagService(testDB)

	flag, err := service.CreateFlag(context.Background(), project.Key,
		validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout"}, "test_user")
	require.NoError(t, err)

	t.Run("canonical boolean variations cannot be deleted", func(t *testing.T) {
		_, err := service.DeleteVariation(context.Background(), flag.Key, flag.Variations[0].ID, "test_user")
		assert.ErrorIs(t, err, ErrCanonicalVariation)

		_, err = service.DeleteVariation(context.Background(), flag.Key, flag.Variations[1].ID, "test_user")
		assert.ErrorIs(t, err, ErrCanonicalVariation)
	})

	t.Run("canonical variation cannot lose its identity", func(t *testing.T) {
		_, err := service.UpdateVariation(context.Background(), flag.Key, flag.Variations[0].ID,
			validator.VariationRequest{Name: "Maybe", Value: "true"}, "test_user")
		assert.ErrorIs(t, err, ErrCanonicalVariation)
	})

	t.Run("extra variation can be added and removed", func(t *testing.T) {
		updated, err := service.AddVariation(context.Background(), flag.Key,
			validator.VariationRequest{Name: "Rollout", Value: "true"}, "test_user")
		require.NoError(t, err)
		require.Len(t, updated.Variations, 3)
		added := updated.Variations[2]

		updated, err = service.DeleteVariation(context.Background(), flag.Key, added.ID, "test_user")
		require.NoError(t, err)
		assert.Len(t, updated.Variations, 2)
	})

	t.Run("variation referenced by targeting cannot be deleted", func(t *testing.T) {
		updated, err := service.AddVariation(context.Background(), flag.Key,
			validator.VariationRequest{Name: "Pinned", Value: "true"}, "test_user")
		require.NoError(t, err)
		pinned := updated.Variations[len(updated.Variations)-1]

		_, err = service.UpdateFlagState(context.Background(), project.Key, flag.Key, env.Key,
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{
					DefaultVariationID: pinned.ID,
				},
			}, "test_user")
		require.NoError(t, err)

		_, err = service.DeleteVariation(context.Background(), flag.Key, pinned.ID, "test_user")
		assert.ErrorIs(t, err, ErrVariationInUse)
	})

	t.Run("unknown variation", func(t *testing.T) {
		_, err := service.DeleteVariation(context.Background(), flag.Key, "no-such-variation", "test_user")
		assert.ErrorIs(t, err, ErrVariationNotFound)
	})
}

func TestFlagService_UpdateFlagState(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, env := testDB.CreateTestProject(t, "mobile")
	service := newFlagService(testDB)

	flag, err := service.CreateFlag(context.Background(), project.Key,
		validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout"}, "test_user")
	require.NoError(t, err)

	trueVar := flag.Variations[0]

	t.Run("enable with targeting", func(t *testing.T) {
		state, err := service.UpdateFlagState(context.Background(), project.Key, flag.Key, env.Key,
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{
					DefaultVariationID: trueVar.ID,
					Individual:         []validator.IndividualOverrideRequest{{UserID: "alice", VariationID: trueVar.ID}},
				},
			}, "test_user")

		require.NoError(t, err)
		assert.True(t, state.IsEnabled)
		assert.Equal(t, trueVar.ID, state.Rules.Targeting.DefaultVariationID)

		testDB.AssertAuditLogExists(t, entity.EntityFlagState, state.ID, entity.ActionEnable, "test_user")
	})

	t.Run("disabling records a disable action", func(t *testing.T) {
		state, err := service.UpdateFlagState(context.Background(), project.Key, flag.Key, env.Key,
			validator.FlagStateUpdateRequest{IsEnabled: false}, "test_user")

		require.NoError(t, err)
		assert.False(t, state.IsEnabled)
		testDB.AssertAuditLogExists(t, entity.EntityFlagState, state.ID, entity.ActionDisable, "test_user")
	})

	t.Run("unknown variation reference is rejected at write time", func(t *testing.T) {
		_, err := service.UpdateFlagState(context.Background(), project.Key, flag.Key, env.Key,
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{DefaultVariationID: "no-such-variation"},
			}, "test_user")

		assert.ErrorIs(t, err, ErrUnknownVariationRef)
	})

	t.Run("segment from another project is rejected", func(t *testing.T) {
		other, _ := testDB.CreateTestProject(t, "other")
		foreign := testDB.CreateTestSegment(t, other.ID, "foreign", entity.SegmentRules{
			{Attribute: "plan", Operator: entity.OperatorEquals, Value: "premium"},
		})

		_, err := service.UpdateFlagState(context.Background(), project.Key, flag.Key, env.Key,
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{
					Segments: []validator.SegmentRuleRequest{{SegmentID: foreign.ID, VariationID: trueVar.ID}},
				},
			}, "test_user")

		assert.ErrorIs(t, err, ErrSegmentNotInProject)
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := service.UpdateFlagState(context.Background(), project.Key, flag.Key, "no-such-env",
			validator.FlagStateUpdateRequest{}, "test_user")

		assert.ErrorIs(t, err, ErrEnvironmentNotFound)
	})
}

func TestFlagService_Archive(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, _ := testDB.CreateTestProject(t, "mobile")
	service := newFlagService(testDB)

	flag, err := service.CreateFlag(context.Background(), project.Key,
		validator.FlagCreateRequest{Key: "legacy_banner", Name: "Legacy Banner"}, "test_user")
	require.NoError(t, err)

	t.Run("archive and unarchive", func(t *testing.T) {
		require.NoError(t, service.SetArchived(context.Background(), flag.Key, true, "test_user"))

		archived, err := service.GetFlag(context.Background(), flag.Key)
		require.NoError(t, err)
		assert.True(t, archived.IsArchived)
		testDB.AssertAuditLogExists(t, entity.EntityFlag, flag.ID, entity.ActionArchive, "test_user")

		require.NoError(t, service.SetArchived(context.Background(), flag.Key, false, "test_user"))
		testDB.AssertAuditLogExists(t, entity.EntityFlag, flag.ID, entity.ActionUnarchive, "test_user")
	})

	t.Run("re-archiving is a no-op", func(t *testing.T) {
		require.NoError(t, service.SetArchived(context.Background(), flag.Key, true, "test_user"))
		assert.NoError(t, service.SetArchived(context.Background(), flag.Key, true, "another_user"))
	})

	t.Run("archived flags are hidden from the default listing", func(t *testing.T) {
		visible, err := service.ListFlags(context.Background(), project.Key, false)
		require.NoError(t, err)
		for _, f := range visible {
			assert.NotEqual(t, flag.Key, f.Key)
		}

		all, err := service.ListFlags(context.Background(), project.Key, true)
		require.NoError(t, err)

		found := false
		for _, f := range all {
			if f.Key == flag.Key {
				found = true
			}
		}
		assert.True(t, found)
	})
}
