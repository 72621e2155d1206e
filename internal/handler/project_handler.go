package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type projectService interface {
	List(ctx context.Context, session *models.Session, query dto.ProjectListQuery) ([]models.Project, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.Project, error)
	Create(ctx context.Context, session *models.Session, req dto.ProjectRequest) (*models.Project, error)
	Update(ctx context.Context, session *models.Session, id string, req dto.ProjectRequest) (*models.Project, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

// ProjectHandler exposes project endpoints.
type ProjectHandler struct {
	projects projectService
}

// NewProjectHandler constructs ProjectHandler.
func NewProjectHandler(projects projectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List godoc
// @Summary List visible projects
// @Tags Projects
// @Produce json
// @Param companyId query string false "Filter by company"
// @Param includeInactive query bool false "Include inactive projects (admin only)"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.ProjectListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	projects, err := h.projects.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// Get godoc
// @Summary Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, project)
}

// Create godoc
// @Summary Create project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.ProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	project, err := h.projects.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update godoc
// @Summary Update project and replace its contacts
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body dto.ProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	project, err := h.projects.Update(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, project)
}

// Delete godoc
// @Summary Delete project with its contacts
// @Tags Projects
// @Param id path string true "Project ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
