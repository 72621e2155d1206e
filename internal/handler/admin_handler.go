package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type expirationTrigger interface {
	Trigger(ctx context.Context, session *models.Session) (*dto.ReconcileResponse, error)
}

type auditLister interface {
	List(ctx context.Context, session *models.Session, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AdminHandler exposes maintenance endpoints.
type AdminHandler struct {
	expiration expirationTrigger
	audit      auditLister
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(expiration expirationTrigger, audit auditLister) *AdminHandler {
	return &AdminHandler{expiration: expiration, audit: audit}
}

// Reconcile godoc
// @Summary Expire approved documents past their due date now
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/expirations/reconcile [post]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	result, err := h.expiration.Trigger(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// AuditLogs godoc
// @Summary List audit rows for a resource
// @Tags Admin
// @Produce json
// @Param resource query string true "document, record_format, record_entry, company, project or category"
// @Param resourceId query string false "Resource ID"
// @Param limit query int false "Maximum rows (default 50)"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	resource := c.Query("resource")
	if resource == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "resource is required"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
		return
	}
	logs, err := h.audit.List(c.Request.Context(), session, resource, c.Query("resourceId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
