package controller

import (
	"net/http"
	"strconv"

	"flagbase/pkg/logger"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
)

type FlagController struct {
	flagService service.FlagService
	logger      *logger.Logger
}

func NewFlagController(fs service.FlagService, log *logger.Logger) *FlagController {
	return &FlagController{
		flagService: fs,
		logger:      log,
	}
}

// CreateFlag handles POST /projects/:key/flags
func (fc *FlagController) CreateFlag(c echo.Context) error {
	var req validator.FlagCreateRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind create flag request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	flag, err := fc.flagService.CreateFlag(c.Request().Context(), c.Param("key"), req, actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	fc.logger.Infow("Flag created via API", "flagID", flag.ID, "key", flag.Key, "actor", actor)
	return c.JSON(http.StatusCreated, flag)
}

// ListFlags handles GET /projects/:key/flags
func (fc *FlagController) ListFlags(c echo.Context) error {
	includeArchived, _ := strconv.ParseBool(c.QueryParam("include_archived"))

	flags, err := fc.flagService.ListFlags(c.Request().Context(), c.Param("key"), includeArchived)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"flags": flags,
		"count": len(flags),
	})
}

// GetFlag handles GET /flags/:flagKey
func (fc *FlagController) GetFlag(c echo.Context) error {
	flag, err := fc.flagService.GetFlag(c.Request().Context(), c.Param("flagKey"))
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, flag)
}

// UpdateFlag handles PUT /flags/:flagKey
func (fc *FlagController) UpdateFlag(c echo.Context) error {
	var req validator.FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind update flag request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	flag, err := fc.flagService.UpdateFlag(c.Request().Context(), c.Param("flagKey"), req, actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, flag)
}

// ArchiveFlag handles POST /flags/:flagKey/archive
func (fc *FlagController) ArchiveFlag(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := fc.flagService.SetArchived(c.Request().Context(), c.Param("flagKey"), true, actor); err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Flag archived"})
}

// UnarchiveFlag handles POST /flags/:flagKey/unarchive
func (fc *FlagController) UnarchiveFlag(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := fc.flagService.SetArchived(c.Request().Context(), c.Param("flagKey"), false, actor); err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Flag unarchived"})
}

// DeleteFlag handles DELETE /flags/:flagKey
func (fc *FlagController) DeleteFlag(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := fc.flagService.DeleteFlag(c.Request().Context(), c.Param("flagKey"), actor); err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// AddVariation handles POST /flags/:flagKey/variations
func (fc *FlagController) AddVariation(c echo.Context) error {
	var req validator.VariationRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind add variation request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	flag, err := fc.flagService.AddVariation(c.Request().Context(), c.Param("flagKey"), req, actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusCreated, flag)
}

// UpdateVariation handles PUT /flags/:flagKey/variations/:variationId
func (fc *FlagController) UpdateVariation(c echo.Context) error {
	var req validator.VariationRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind update variation request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	flag, err := fc.flagService.UpdateVariation(c.Request().Context(), c.Param("flagKey"), c.Param("variationId"), req, actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, flag)
}

// DeleteVariation handles DELETE /flags/:flagKey/variations/:variationId
func (fc *FlagController) DeleteVariation(c echo.Context) error {
	actor := getActorFromContext(c)

	flag, err := fc.flagService.DeleteVariation(c.Request().Context(), c.Param("flagKey"), c.Param("variationId"), actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, flag)
}

// GetFlagState handles GET /projects/:key/environments/:envKey/flags/:flagKey/state
func (fc *FlagController) GetFlagState(c echo.Context) error {
	state, err := fc.flagService.GetFlagState(c.Request().Context(), c.Param("key"), c.Param("flagKey"), c.Param("envKey"))
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	return c.JSON(http.StatusOK, state)
}

// UpdateFlagState handles PUT /projects/:key/environments/:envKey/flags/:flagKey/state
func (fc *FlagController) UpdateFlagState(c echo.Context) error {
	var req validator.FlagStateUpdateRequest
	if err := c.Bind(&req); err != nil {
		fc.logger.Warnw("Failed to bind update flag state request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	state, err := fc.flagService.UpdateFlagState(c.Request().Context(), c.Param("key"), c.Param("flagKey"), c.Param("envKey"), req, actor)
	if err != nil {
		return handleServiceError(c, fc.logger, err)
	}

	status := "disabled"
	if state.IsEnabled {
		status = "enabled"
	}
	fc.logger.Infow("Flag state updated via API", "flag", c.Param("flagKey"), "environment", c.Param("envKey"), "status", status, "actor", actor)

	return c.JSON(http.StatusOK, state)
}
