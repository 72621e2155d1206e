package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/catalog"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

const maxCatalogBytes = 1 << 20

type categoryService interface {
	List(ctx context.Context, session *models.Session, query dto.CategoryListQuery) ([]models.DocumentCategory, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.DocumentCategory, error)
	Create(ctx context.Context, session *models.Session, req dto.CategoryRequest) (*models.DocumentCategory, error)
	Update(ctx context.Context, session *models.Session, id string, req dto.CategoryRequest) (*models.DocumentCategory, error)
	Delete(ctx context.Context, session *models.Session, id string) error
	Import(ctx context.Context, session *models.Session, file *catalog.File) (*dto.CatalogImportResponse, error)
}

// CategoryHandler exposes the normative category catalog.
type CategoryHandler struct {
	categories categoryService
}

// NewCategoryHandler constructs CategoryHandler.
func NewCategoryHandler(categories categoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param type query string false "document or record"
// @Param includeInactive query bool false "Include inactive categories (admin only)"
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.CategoryListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	categories, err := h.categories.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, category)
}

// Create godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body dto.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	category, err := h.categories.Update(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, category)
}

// Delete godoc
// @Summary Deactivate category
// @Tags Categories
// @Param id path string true "Category ID"
// @Success 204
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import a YAML category catalog
// @Description Accepts the catalog as the raw request body or as a multipart "file" field.
// @Tags Categories
// @Accept application/x-yaml,multipart/form-data
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories/import [post]
func (h *CategoryHandler) Import(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var body io.Reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxCatalogBytes)
	if c.ContentType() == "multipart/form-data" {
		upload, closeFn, err := formUpload(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeFn()
		body = io.LimitReader(upload.Content, maxCatalogBytes)
	}
	file, err := catalog.Parse(body)
	if err != nil {
		response.Error(c, appErrors.Invalid(err, err.Error()))
		return
	}
	result, err := h.categories.Import(c.Request.Context(), session, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
