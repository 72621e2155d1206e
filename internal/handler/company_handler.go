package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type companyService interface {
	List(ctx context.Context, session *models.Session, query dto.CompanyListQuery) ([]models.Company, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.Company, error)
	Create(ctx context.Context, session *models.Session, req dto.CompanyRequest) (*models.Company, error)
	Update(ctx context.Context, session *models.Session, id string, req dto.CompanyRequest) (*models.Company, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

// CompanyHandler exposes company endpoints.
type CompanyHandler struct {
	companies companyService
}

// NewCompanyHandler constructs CompanyHandler.
func NewCompanyHandler(companies companyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// List godoc
// @Summary List companies
// @Tags Companies
// @Produce json
// @Param search query string false "Search by razon social or RUC"
// @Param includeInactive query bool false "Include soft-deleted companies (admin only)"
// @Success 200 {object} response.Envelope
// @Router /companies [get]
func (h *CompanyHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.CompanyListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	companies, err := h.companies.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, companies, nil)
}

// Get godoc
// @Summary Get company detail
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} response.Envelope
// @Router /companies/{id} [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	company, err := h.companies.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Create godoc
// @Summary Create company
// @Tags Companies
// @Accept json
// @Produce json
// @Param payload body dto.CompanyRequest true "Company payload"
// @Success 201 {object} response.Envelope
// @Router /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	company, err := h.companies.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// Update godoc
// @Summary Update company
// @Tags Companies
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param payload body dto.CompanyRequest true "Company payload"
// @Success 200 {object} response.Envelope
// @Router /companies/{id} [put]
func (h *CompanyHandler) Update(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	company, err := h.companies.Update(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Delete godoc
// @Summary Deactivate company
// @Tags Companies
// @Param id path string true "Company ID"
// @Success 204
// @Router /companies/{id} [delete]
func (h *CompanyHandler) Delete(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.companies.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
