package controller

import (
	"net/http"

	"flagbase/pkg/logger"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
)

type EnvironmentController struct {
	envService service.EnvironmentService
	logger     *logger.Logger
}

func NewEnvironmentController(es service.EnvironmentService, log *logger.Logger) *EnvironmentController {
	return &EnvironmentController{
		envService: es,
		logger:     log,
	}
}

// CreateEnvironment handles POST /projects/:key/environments
func (ec *EnvironmentController) CreateEnvironment(c echo.Context) error {
	var req validator.EnvironmentCreateRequest
	if err := c.Bind(&req); err != nil {
		ec.logger.Warnw("Failed to bind create environment request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	env, err := ec.envService.CreateEnvironment(c.Request().Context(), c.Param("key"), req, actor)
	if err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	ec.logger.Infow("Environment created via API", "environmentID", env.ID, "key", env.Key, "actor", actor)
	return c.JSON(http.StatusCreated, env)
}

// ListEnvironments handles GET /projects/:key/environments
func (ec *EnvironmentController) ListEnvironments(c echo.Context) error {
	envs, err := ec.envService.ListEnvironments(c.Request().Context(), c.Param("key"))
	if err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"environments": envs,
		"count":        len(envs),
	})
}

// GetEnvironment handles GET /projects/:key/environments/:envKey
func (ec *EnvironmentController) GetEnvironment(c echo.Context) error {
	env, err := ec.envService.GetEnvironment(c.Request().Context(), c.Param("key"), c.Param("envKey"))
	if err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	return c.JSON(http.StatusOK, env)
}

// UpdateEnvironment handles PUT /projects/:key/environments/:envKey
func (ec *EnvironmentController) UpdateEnvironment(c echo.Context) error {
	var req validator.EnvironmentUpdateRequest
	if err := c.Bind(&req); err != nil {
		ec.logger.Warnw("Failed to bind update environment request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	env, err := ec.envService.UpdateEnvironment(c.Request().Context(), c.Param("key"), c.Param("envKey"), req, actor)
	if err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	return c.JSON(http.StatusOK, env)
}

// DeleteEnvironment handles DELETE /projects/:key/environments/:envKey
func (ec *EnvironmentController) DeleteEnvironment(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := ec.envService.DeleteEnvironment(c.Request().Context(), c.Param("key"), c.Param("envKey"), actor); err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}
