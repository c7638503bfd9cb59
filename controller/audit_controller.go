package controller

import (
	"net/http"
	"strconv"

	"flagbase/entity"
	"flagbase/pkg/logger"
	"flagbase/service"

	"github.com/labstack/echo/v4"
)

type AuditController struct {
	auditService service.AuditService
	logger       *logger.Logger
}

func NewAuditController(as service.AuditService, log *logger.Logger) *AuditController {
	return &AuditController{
		auditService: as,
		logger:       log,
	}
}

// ListAuditLogs handles GET /audit
func (ac *AuditController) ListAuditLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	logs, err := ac.auditService.ListAuditLogs(c.Request().Context(), limit, offset)
	if err != nil {
		return handleServiceError(c, ac.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"count":      len(logs),
	})
}

// ListAuditLogsByEntity handles GET /audit/:entity/:id
func (ac *AuditController) ListAuditLogsByEntity(c echo.Context) error {
	entityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid entity ID"})
	}

	logs, err := ac.auditService.ListAuditLogsByEntity(c.Request().Context(), entity.AuditEntity(c.Param("entity")), entityID)
	if err != nil {
		return handleServiceError(c, ac.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"count":      len(logs),
	})
}
