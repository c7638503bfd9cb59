package handler

import (
	"flagbase/config"
	"flagbase/controller"
	_ "flagbase/docs" // Import for swagger docs
	"flagbase/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Controllers bundles everything RegisterRoutes wires up
type Controllers struct {
	Project     *controller.ProjectController
	Environment *controller.EnvironmentController
	Flag        *controller.FlagController
	Segment     *controller.SegmentController
	Audit       *controller.AuditController
	Evaluation  *controller.EvaluationController
}

func RegisterRoutes(e *echo.Echo, ctrl Controllers, cfg *config.Config, log *logger.Logger) {
	// Add middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			if values.Error != nil {
				log.Errorw("Request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"error", values.Error,
				)
			} else {
				log.Infow("Request completed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
				)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "healthy",
			"service": "flagbase",
		})
	})

	// Swagger documentation (if enabled)
	if cfg.Swagger.Enabled {
		log.Infow("Swagger documentation enabled", "path", "/swagger/*")
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// API routes
	api := e.Group("/api/v1")

	// Project routes
	api.POST("/projects", ctrl.Project.CreateProject)
	api.GET("/projects", ctrl.Project.ListProjects)
	api.GET("/projects/:key", ctrl.Project.GetProject)
	api.PUT("/projects/:key", ctrl.Project.UpdateProject)
	api.DELETE("/projects/:key", ctrl.Project.DeleteProject)
	api.GET("/projects/:key/members", ctrl.Project.ListMembers)
	api.POST("/projects/:key/members", ctrl.Project.AddMember)
	api.DELETE("/projects/:key/members/:userId", ctrl.Project.RemoveMember)

	// Environment routes
	api.POST("/projects/:key/environments", ctrl.Environment.CreateEnvironment)
	api.GET("/projects/:key/environments", ctrl.Environment.ListEnvironments)
	api.GET("/projects/:key/environments/:envKey", ctrl.Environment.GetEnvironment)
	api.PUT("/projects/:key/environments/:envKey", ctrl.Environment.UpdateEnvironment)
	api.DELETE("/projects/:key/environments/:envKey", ctrl.Environment.DeleteEnvironment)

	// Flag routes
	api.POST("/projects/:key/flags", ctrl.Flag.CreateFlag)
	api.GET("/projects/:key/flags", ctrl.Flag.ListFlags)
	api.GET("/flags/:flagKey", ctrl.Flag.GetFlag)
	api.PUT("/flags/:flagKey", ctrl.Flag.UpdateFlag)
	api.POST("/flags/:flagKey/archive", ctrl.Flag.ArchiveFlag)
	api.POST("/flags/:flagKey/unarchive", ctrl.Flag.UnarchiveFlag)
	api.DELETE("/flags/:flagKey", ctrl.Flag.DeleteFlag)

	// Variation routes
	api.POST("/flags/:flagKey/variations", ctrl.Flag.AddVariation)
	api.PUT("/flags/:flagKey/variations/:variationId", ctrl.Flag.UpdateVariation)
	api.DELETE("/flags/:flagKey/variations/:variationId", ctrl.Flag.DeleteVariation)

	// Flag state routes
	api.GET("/projects/:key/environments/:envKey/flags/:flagKey/state", ctrl.Flag.GetFlagState)
	api.PUT("/projects/:key/environments/:envKey/flags/:flagKey/state", ctrl.Flag.UpdateFlagState)

	// Evaluation route
	api.POST("/projects/:key/environments/:envKey/flags/:flagKey/evaluate", ctrl.Evaluation.EvaluateFlag)

	// Segment routes
	api.POST("/projects/:key/segments", ctrl.Segment.CreateSegment)
	api.GET("/projects/:key/segments", ctrl.Segment.ListSegments)
	api.GET("/projects/:key/segments/:segmentKey", ctrl.Segment.GetSegment)
	api.PUT("/projects/:key/segments/:segmentKey", ctrl.Segment.UpdateSegment)
	api.DELETE("/projects/:key/segments/:segmentKey", ctrl.Segment.DeleteSegment)

	// Audit routes
	api.GET("/audit", ctrl.Audit.ListAuditLogs)
	api.GET("/audit/:entity/:id", ctrl.Audit.ListAuditLogsByEntity)
}
