package controller

import (
	"net/http"

	"flagbase/pkg/logger"
	"flagbase/service"
	"flagbase/validator"

	"github.com/labstack/echo/v4"
)

type ProjectController struct {
	projectService service.ProjectService
	logger         *logger.Logger
}

func NewProjectController(ps service.ProjectService, log *logger.Logger) *ProjectController {
	return &ProjectController{
		projectService: ps,
		logger:         log,
	}
}

// CreateProject handles POST /projects
func (pc *ProjectController) CreateProject(c echo.Context) error {
	var req validator.ProjectCreateRequest
	if err := c.Bind(&req); err != nil {
		pc.logger.Warnw("Failed to bind create project request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	project, err := pc.projectService.CreateProject(c.Request().Context(), req, actor)
	if err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	pc.logger.Infow("Project created via API", "projectID", project.ID, "key", project.Key, "actor", actor)
	return c.JSON(http.StatusCreated, project)
}

// ListProjects handles GET /projects
func (pc *ProjectController) ListProjects(c echo.Context) error {
	projects, err := pc.projectService.ListProjects(c.Request().Context())
	if err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// GetProject handles GET /projects/:key
func (pc *ProjectController) GetProject(c echo.Context) error {
	project, err := pc.projectService.GetProject(c.Request().Context(), c.Param("key"))
	if err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.JSON(http.StatusOK, project)
}

// UpdateProject handles PUT /projects/:key
func (pc *ProjectController) UpdateProject(c echo.Context) error {
	var req validator.ProjectUpdateRequest
	if err := c.Bind(&req); err != nil {
		pc.logger.Warnw("Failed to bind update project request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	project, err := pc.projectService.UpdateProject(c.Request().Context(), c.Param("key"), req, actor)
	if err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /projects/:key
func (pc *ProjectController) DeleteProject(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := pc.projectService.DeleteProject(c.Request().Context(), c.Param("key"), actor); err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListMembers handles GET /projects/:key/members
func (pc *ProjectController) ListMembers(c echo.Context) error {
	members, err := pc.projectService.ListMembers(c.Request().Context(), c.Param("key"))
	if err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

// AddMember handles POST /projects/:key/members
func (pc *ProjectController) AddMember(c echo.Context) error {
	var req validator.ProjectMemberRequest
	if err := c.Bind(&req); err != nil {
		pc.logger.Warnw("Failed to bind add member request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	actor := getActorFromContext(c)

	if err := pc.projectService.AddMember(c.Request().Context(), c.Param("key"), req, actor); err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "Member added"})
}

// RemoveMember handles DELETE /projects/:key/members/:userId
func (pc *ProjectController) RemoveMember(c echo.Context) error {
	actor := getActorFromContext(c)

	if err := pc.projectService.RemoveMember(c.Request().Context(), c.Param("key"), c.Param("userId"), actor); err != nil {
		return handleServiceError(c, pc.logger, err)
	}

	return c.NoContent(http.StatusNoContent)
}
