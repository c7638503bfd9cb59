package controller

import (
	"net/http"

	"flagbase/evaluation"
	"flagbase/pkg/logger"
	"flagbase/service"

	"github.com/labstack/echo/v4"
)

type EvaluationController struct {
	evalService service.EvaluationService
	logger      *logger.Logger
}

func NewEvaluationController(es service.EvaluationService, log *logger.Logger) *EvaluationController {
	return &EvaluationController{
		evalService: es,
		logger:      log,
	}
}

// EvaluateFlag handles POST /projects/:key/environments/:envKey/flags/:flagKey/evaluate
//
// The request body is the evaluation context: an arbitrary string-keyed
// attribute mapping, e.g. {"userId": "u-1", "email": "a@example.com"}.
// An empty or missing body evaluates with no attributes.
func (ec *EvaluationController) EvaluateFlag(c echo.Context) error {
	evalCtx := evaluation.Context{}
	if err := c.Bind(&evalCtx); err != nil {
		ec.logger.Warnw("Failed to bind evaluation context", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	result, err := ec.evalService.EvaluateFlag(
		c.Request().Context(),
		c.Param("key"),
		c.Param("envKey"),
		c.Param("flagKey"),
		evalCtx,
	)
	if err != nil {
		return handleServiceError(c, ec.logger, err)
	}

	return c.JSON(http.StatusOK, result)
}
