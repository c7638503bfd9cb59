package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"flagbase/config"
	"flagbase/controller"
	"flagbase/entity"
	"flagbase/handler"
	"flagbase/repository"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(testDB *TestDB) *echo.Echo {
	projectRepo := repository.NewProjectRepository(testDB.DB)
	envRepo := repository.NewEnvironmentRepository(testDB.DB)
	flagRepo := repository.NewFlagRepository(testDB.DB)
	segmentRepo := repository.NewSegmentRepository(testDB.DB)
	auditRepo := repository.NewAuditRepository(testDB.DB)
	log := GetTestLogger()

	projectService := service.NewProjectService(projectRepo, envRepo, auditRepo, log)
	envService := service.NewEnvironmentService(projectRepo, envRepo, flagRepo, auditRepo, nil, log)
	flagService := service.NewFlagService(projectRepo, envRepo, flagRepo, segmentRepo, auditRepo, nil, log)
	segmentService := service.NewSegmentService(projectRepo, segmentRepo, auditRepo, nil, log)
	auditService := service.NewAuditService(auditRepo, log)
	evalService := service.NewEvaluationService(projectRepo, envRepo, flagRepo, segmentRepo, nil, log)

	ctrl := handler.Controllers{
		Project:     controller.NewProjectController(projectService, log),
		Environment: controller.NewEnvironmentController(envService, log),
		Flag:        controller.NewFlagController(flagService, log),
		Segment:     controller.NewSegmentController(segmentService, log),
		Audit:       controller.NewAuditController(auditService, log),
		Evaluation:  controller.NewEvaluationController(evalService, log),
	}

	e := echo.New()
	cfg := &config.Config{Swagger: config.Swagger{Enabled: false}}
	handler.RegisterRoutes(e, ctrl, cfg, log)
	return e
}

func doJSON(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "test_user")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// TestScenario_FlagLifecycle walks a flag from creation through targeted
// rollout over the HTTP API
func TestScenario_FlagLifecycle(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	e := setupServer(testDB)

	var flag entity.FeatureFlag
	var segment entity.Segment

	t.Run("Create project with default environments", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects",
			validator.ProjectCreateRequest{Key: "mobile", Name: "Mobile"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(e, http.MethodGet, "/api/v1/projects/mobile/environments", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var envResponse map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &envResponse)
		assert.Equal(t, float64(3), envResponse["count"])
	})

	t.Run("Create boolean flag", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/mobile/flags",
			validator.FlagCreateRequest{Key: "new_checkout", Name: "New Checkout"})
		require.Equal(t, http.StatusCreated, rec.Code)

		json.Unmarshal(rec.Body.Bytes(), &flag)
		assert.Equal(t, entity.FlagTypeBoolean, flag.Type)
		require.Len(t, flag.Variations, 2)
	})

	t.Run("Disabled flag evaluates to false", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/mobile/environments/production/flags/new_checkout/evaluate",
			map[string]string{"userId": "alice"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, false, result["value"])
		assert.Equal(t, "OFF", result["reason"])
	})

	t.Run("Create beta segment", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/mobile/segments",
			validator.SegmentCreateRequest{
				Key:  "beta-users",
				Name: "Beta Users",
				Rules: []validator.AttributeRuleRequest{
					{Attribute: "plan", Operator: "equals", Value: "premium"},
				},
			})
		require.Equal(t, http.StatusCreated, rec.Code)
		json.Unmarshal(rec.Body.Bytes(), &segment)
	})

	t.Run("Enable flag for the beta segment in production", func(t *testing.T) {
		trueVar := flag.Variations[0]
		falseVar := flag.Variations[1]

		rec := doJSON(e, http.MethodPut, "/api/v1/projects/mobile/environments/production/flags/new_checkout/state",
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{
					DefaultVariationID: falseVar.ID,
					Segments: []validator.SegmentRuleRequest{
						{SegmentID: segment.ID, VariationID: trueVar.ID},
					},
				},
			})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Segment members get the new checkout, others do not", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/mobile/environments/production/flags/new_checkout/evaluate",
			map[string]string{"userId": "alice", "plan": "premium"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, true, result["value"])
		assert.Equal(t, "SEGMENT_MATCH", result["reason"])

		rec = doJSON(e, http.MethodPost, "/api/v1/projects/mobile/environments/production/flags/new_checkout/evaluate",
			map[string]string{"userId": "bob", "plan": "free"})
		require.Equal(t, http.StatusOK, rec.Code)

		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, false, result["value"])
		assert.Equal(t, "DEFAULT", result["reason"])
	})

	t.Run("Staging is untouched by the production rollout", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/mobile/environments/staging/flags/new_checkout/evaluate",
			map[string]string{"userId": "alice", "plan": "premium"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, false, result["value"])
		assert.Equal(t, "OFF", result["reason"])
	})

	t.Run("Mutations left an audit trail", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, fmt.Sprintf("/api/v1/audit/flag/%d", flag.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var auditResponse map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &auditResponse)
		logs := auditResponse["audit_logs"].([]interface{})
		require.NotEmpty(t, logs)

		first := logs[len(logs)-1].(map[string]interface{})
		assert.Equal(t, "create", first["action"])
		assert.Equal(t, "test_user", first["actor"])
	})
}

// TestScenario_IndividualOverride pins specific users regardless of rules
func TestScenario_IndividualOverride(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	e := setupServer(testDB)

	rec := doJSON(e, http.MethodPost, "/api/v1/projects",
		validator.ProjectCreateRequest{Key: "web", Name: "Web"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/projects/web/flags",
		validator.FlagCreateRequest{Key: "dark_mode", Name: "Dark Mode"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var flag entity.FeatureFlag
	json.Unmarshal(rec.Body.Bytes(), &flag)
	trueVar := flag.Variations[0]
	falseVar := flag.Variations[1]

	rec = doJSON(e, http.MethodPut, "/api/v1/projects/web/environments/production/flags/dark_mode/state",
		validator.FlagStateUpdateRequest{
			IsEnabled: true,
			Targeting: validator.TargetingRequest{
				DefaultVariationID: falseVar.ID,
				Individual: []validator.IndividualOverrideRequest{
					{UserID: "canary-user", VariationID: trueVar.ID},
				},
				Rules: []validator.AttributeRuleRequest{
					{Attribute: "userId", Operator: "equals", Value: "canary-user", VariationID: falseVar.ID},
				},
			},
		})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("Override beats a contradicting rule", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/web/environments/production/flags/dark_mode/evaluate",
			map[string]string{"userId": "canary-user"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, true, result["value"])
		assert.Equal(t, "INDIVIDUAL_OVERRIDE", result["reason"])
	})
}

// TestScenario_ErrorResponses covers the HTTP mapping of domain errors
func TestScenario_ErrorResponses(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	e := setupServer(testDB)

	rec := doJSON(e, http.MethodPost, "/api/v1/projects",
		validator.ProjectCreateRequest{Key: "api", Name: "API"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/projects/api/flags",
		validator.FlagCreateRequest{Key: "rate_limiter", Name: "Rate Limiter"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var flag entity.FeatureFlag
	json.Unmarshal(rec.Body.Bytes(), &flag)

	t.Run("duplicate project returns 409", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects",
			validator.ProjectCreateRequest{Key: "api", Name: "API Again"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown flag returns 404", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/api/v1/flags/no_such_flag", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed key returns 400 with field details", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects",
			validator.ProjectCreateRequest{Key: "Not Valid!", Name: "Nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var response map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &response)
		assert.Contains(t, response, "validation_errors")
	})

	t.Run("dangling variation reference returns 400", func(t *testing.T) {
		rec := doJSON(e, http.MethodPut, "/api/v1/projects/api/environments/production/flags/rate_limiter/state",
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{DefaultVariationID: "no-such-variation"},
			})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deleting a canonical variation returns 409", func(t *testing.T) {
		rec := doJSON(e, http.MethodDelete,
			fmt.Sprintf("/api/v1/flags/rate_limiter/variations/%s", flag.Variations[0].ID), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("evaluating an archived flag returns 409", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/flags/rate_limiter/archive", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(e, http.MethodPost, "/api/v1/projects/api/environments/production/flags/rate_limiter/evaluate",
			map[string]string{})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

// TestScenario_TypedFlags serves number and json flags end to end
func TestScenario_TypedFlags(t *testing.T) {
	testDB := SetupTestDB(t)
	defer testDB.Close()
	defer testDB.CleanTables(t)

	e := setupServer(testDB)

	rec := doJSON(e, http.MethodPost, "/api/v1/projects",
		validator.ProjectCreateRequest{Key: "api", Name: "API"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("number flag without variations serves its default value", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/api/flags",
			validator.FlagCreateRequest{
				Key:          "request_limit",
				Name:         "Request Limit",
				Type:         "number",
				DefaultValue: "42",
			})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doJSON(e, http.MethodPost, "/api/v1/projects/api/environments/production/flags/request_limit/evaluate",
			map[string]string{})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, float64(42), result["value"])
		assert.Equal(t, "DEFAULT_VALUE", result["reason"])
	})

	t.Run("json flag serves structured values", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/api/flags",
			validator.FlagCreateRequest{
				Key:          "retry_policy",
				Name:         "Retry Policy",
				Type:         "json",
				DefaultValue: `{"attempts":3}`,
				Variations: []validator.VariationRequest{
					{Name: "Conservative", Value: `{"attempts":3}`},
					{Name: "Aggressive", Value: `{"attempts":10}`},
				},
			})
		require.Equal(t, http.StatusCreated, rec.Code)

		var flag entity.FeatureFlag
		json.Unmarshal(rec.Body.Bytes(), &flag)

		rec = doJSON(e, http.MethodPut, "/api/v1/projects/api/environments/production/flags/retry_policy/state",
			validator.FlagStateUpdateRequest{
				IsEnabled: true,
				Targeting: validator.TargetingRequest{DefaultVariationID: flag.Variations[1].ID},
			})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(e, http.MethodPost, "/api/v1/projects/api/environments/production/flags/retry_policy/evaluate",
			map[string]string{})
		require.Equal(t, http.StatusOK, rec.Code)

		var result map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &result)
		assert.Equal(t, map[string]interface{}{"attempts": float64(10)}, result["value"])
	})

	t.Run("invalid typed value is rejected at creation", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/projects/api/flags",
			validator.FlagCreateRequest{
				Key:          "bad_number",
				Name:         "Bad Number",
				Type:         "number",
				DefaultValue: "forty-two",
			})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
