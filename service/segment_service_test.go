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

func newSegmentService(testDB *test.TestDB) SegmentService {
	projectRepo := repository.NewProjectRepository(testDB.DB)
	segmentRepo := repository.NewSegmentRepository(testDB.DB)
	auditRepo := repository.NewAuditRepository(testDB.DB)
	log := test.GetTestLogger()
	return NewSegmentService(projectRepo, segmentRepo, auditRepo, nil, log)
}

func TestSegmentService_CRUD(t *testing.T) {
	testDB := test.SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	project, _ := testDB.CreateTestProject(t, "mobile")
	service := newSegmentService(testDB)

	t.Run("create segment with rules", func(t *testing.T) {
		segment, err := service.CreateSegment(context.Background(), project.Key,
			validator.SegmentCreateRequest{
				Key:  "beta-users",
				Name: "Beta Users",
				Rules: []validator.AttributeRuleRequest{
					{Attribute: "plan", Operator: "equals", Value: "premium"},
					{Attribute: "country", Operator: "equals", Value: "DE"},
				},
			}, "test_user")

		require.NoError(t, err)
		assert.Equal(t, "beta-users", segment.Key)
		require.Len(t, segment.Rules, 2)
		assert.NotEmpty(t, segment.Rules[0].ID)

		testDB.AssertAuditLogExists(t, entity.EntitySegment, segment.ID, entity.ActionCreate, "test_user")
	})

	t.Run("duplicate key within the project", func(t *testing.T) {
		_, err := service.CreateSegment(context.Background(), project.Key,
			validator.SegmentCreateRequest{Key: "beta-users", Name: "Beta Again"}, "test_user")
		assert.ErrorIs(t, err, ErrSegmentAlreadyExists)
	})

	t.Run("invalid operator in membership rules", func(t *testing.T) {
		_, err := service.CreateSegment(context.Background(), project.Key,
			validator.SegmentCreateRequest{
				Key:  "weird",
				Name: "Weird",
				Rules: []validator.AttributeRuleRequest{
					{Attribute: "plan", Operator: "regex", Value: ".*"},
				},
			}, "test_user")

		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs)
	})

	t.Run("update replaces the rule list", func(t *testing.T) {
		segment, err := service.UpdateSegment(context.Background(), project.Key, "beta-users",
			validator.SegmentUpdateRequest{
				Name: "Beta Users",
				Rules: []validator.AttributeRuleRequest{
					{Attribute: "plan", Operator: "equals", Value: "enterprise"},
				},
			}, "test_user")

		require.NoError(t, err)
		require.Len(t, segment.Rules, 1)
		assert.Equal(t, "enterprise", segment.Rules[0].Value)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, service.DeleteSegment(context.Background(), project.Key, "beta-users", "test_user"))

		_, err := service.GetSegment(context.Background(), project.Key, "beta-users")
		assert.ErrorIs(t, err, ErrSegmentNotFound)
	})
}
