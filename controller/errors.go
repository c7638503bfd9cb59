package controller

import (
	"errors"
	"net/http"

	"flagbase/evaluation"
	"flagbase/pkg/logger"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
)

// handleServiceError converts service errors to appropriate HTTP responses
func handleServiceError(c echo.Context, log *logger.Logger, err error) error {
	// Handle validation errors
	if validationErr, ok := err.(validator.ValidationErrors); ok {
		log.Warnw("Validation error in API", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":             "Validation failed",
			"validation_errors": validationErr.Errors,
		})
	}

	switch {
	case errors.Is(err, service.ErrProjectNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Project not found"})
	case errors.Is(err, service.ErrEnvironmentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Environment not found"})
	case errors.Is(err, service.ErrFlagNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Flag not found"})
	case errors.Is(err, service.ErrFlagStateNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Flag state not found"})
	case errors.Is(err, service.ErrSegmentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Segment not found"})
	case errors.Is(err, service.ErrVariationNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Variation not found"})

	case errors.Is(err, service.ErrProjectAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Project with this key already exists"})
	case errors.Is(err, service.ErrEnvironmentAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Environment with this key already exists"})
	case errors.Is(err, service.ErrFlagAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Flag with this key already exists"})
	case errors.Is(err, service.ErrSegmentAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Segment with this key already exists"})

	case errors.Is(err, service.ErrCanonicalVariation):
		return c.JSON(http.StatusConflict, map[string]string{"error": "The default boolean variations cannot be deleted"})
	case errors.Is(err, service.ErrVariationInUse):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Variation is still referenced by targeting rules"})
	case errors.Is(err, service.ErrFlagArchived):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Flag is archived"})

	case errors.Is(err, service.ErrUnknownVariationRef),
		errors.Is(err, service.ErrSegmentNotInProject):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})

	case errors.Is(err, evaluation.ErrInvalidVariationValue):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, evaluation.ErrNoVariationAvailable):
		log.Errorw("Flag misconfiguration detected", "error", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Flag has no variations and no default value"})

	default:
		log.Errorw("Internal error in API", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

// getActorFromContext extracts the actor from the request context.
// In a real deployment this would be populated by authentication middleware.
func getActorFromContext(c echo.Context) string {
	if actor := c.Request().Header.Get("X-Actor"); actor != "" {
		return actor
	}
	if actor := c.QueryParam("actor"); actor != "" {
		return actor
	}
	return "anonymous"
}
