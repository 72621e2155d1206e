package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, session *models.Session, query dto.UserListQuery) ([]models.User, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.User, error)
	Create(ctx context.Context, session *models.Session, req dto.UserRequest) (*models.User, error)
	Update(ctx context.Context, session *models.Session, id string, req dto.UserRequest) (*models.User, error)
	Deactivate(ctx context.Context, session *models.Session, id string) error
}

// UserHandler exposes platform profile endpoints.
type UserHandler struct {
	users userService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary List user profiles
// @Tags Users
// @Produce json
// @Param companyId query string false "Company ID (ignored for company users)"
// @Param role query string false "admin or company_user"
// @Param includeInactive query bool false "Include deactivated profiles (admin only)"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.UserListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	users, err := h.users.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Me returns the caller's resolved identity.
func (h *UserHandler) Me(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	response.OK(c, session.Identity)
}

// Get godoc
// @Summary Get a user profile
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	user, err := h.users.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Create godoc
// @Summary Register the profile of an auth account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UserRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.users.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update a user profile
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UserRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.users.Update(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Deactivate godoc
// @Summary Deactivate a user profile
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
func (h *UserHandler) Deactivate(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
