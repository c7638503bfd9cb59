package controller

import (
	"net/http"

	"flagbase/pkg/logger"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
)

type SegmentController struct {
	segmentService service.SegmentService
	logger         *logger.Logger
}

func NewSegmentController(ss service.SegmentService, log *logger.Logger) *SegmentController {
	return &SegmentController{
		segmentService: ss,
		logger:         log,
	}
}

// CreateSegment handles POST /projects/:key/segments
func (sc *SegmentController) CreateSegment(c echo.Context) error {
	var req validator.SegmentCreateRequest
	if err := c.Bind(&req); err != nil {
		sc.logger.Warnw("Failed to bind create segment request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	segment, err := sc.segmentService.CreateSegment(c.Request().Context(), c.Param("key"), req, actor)
	if err != nil {
		return handleServiceError(c, sc.logger, err)
	}

	sc.logger.Infow("Segment created via API", "segmentID", segment.ID, "key", segment.Key, "actor", actor)
	return c.JSON(http.StatusCreated, segment)
}

// ListSegments handles GET /projects/:key/segments
func (sc *SegmentController) ListSegments(c echo.Context) error {
	segments, err := sc.segmentService.ListSegments(c.Request().Context(), c.Param("key"))
	if err != nil {
		return handleServiceError(c, sc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"segments": segments,
		"count":    len(segments),
	})
}

// GetSegment handles GET /projects/:key/segments/:segmentKey
func (sc *SegmentController) GetSegment(c echo.Context) error {
	segment, err := sc.segmentService.GetSegment(c.Request().Context(), c.Param("key"), c.Param("segmentKey"))
	if err != nil {
		return handleServiceError(c, sc.logger, err)
	}

	return c.JSON(http.StatusOK, segment)
}

// UpdateSegment handles PUT /projects/:key/segments/:segmentKey
func (sc *SegmentController) UpdateSegment(c echo.Context) error {
	var req validator.SegmentUpdateRequest
	if err := c.Bind(&req); err != nil {
		sc.logger.Warnw("Failed to bind update segment request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	segment, err := sc.segmentService.UpdateSegment(c.Request().Context(), c.Param("key"), c.Param("segmentKey"), req, actor)
	if err != nil {
		return handleServiceError(c, sc.logger, err)
	}

	return c.JSON(http.StatusOK, segment)
}

// DeleteSegment handles DELETE /projects/:key/segments/:segmentKey
func (sc *SegmentController) DeleteSegment(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := sc.segmentService.DeleteSegment(c.Request().Context(), c.Param("key"), c.Param("segmentKey"), actor); err != nil {
		return handleServiceError(c, sc.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}
