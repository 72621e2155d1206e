package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

const metadataField = "metadata"

type documentService interface {
	List(ctx context.Context, session *models.Session, query dto.DocumentListQuery) ([]dto.DocumentResponse, *models.Pagination, error)
	Get(ctx context.Context, session *models.Session, id string) (*dto.DocumentResponse, error)
	Create(ctx context.Context, session *models.Session, req dto.CreateDocumentRequest, file dto.FileUpload) (*dto.DocumentResponse, error)
	AddVersion(ctx context.Context, session *models.Session, id string, req dto.AddVersionRequest, file dto.FileUpload) (*dto.DocumentResponse, error)
	ActivateVersion(ctx context.Context, session *models.Session, id, versionID string) (*dto.DocumentResponse, error)
	DeactivateVersions(ctx context.Context, session *models.Session, id string) (*dto.DocumentResponse, error)
	Transition(ctx context.Context, session *models.Session, id string, req dto.TransitionRequest) (*dto.DocumentResponse, error)
	DownloadURL(ctx context.Context, session *models.Session, id, versionID string) (*dto.DownloadResponse, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

// DocumentHandler exposes one controlled-artifact track. The same handler type
// serves /documents and /record-formats.
type DocumentHandler struct {
	documents documentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents documentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List godoc
// @Summary List visible documents or record formats
// @Tags Documents
// @Produce json
// @Param projectId query string false "Filter by project"
// @Param categoryId query string false "Filter by category"
// @Param status query string false "Lifecycle status"
// @Param search query string false "Search by nombre or codigo"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
// @Router /record-formats [get]
func (h *DocumentHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	docs, pagination, err := h.documents.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, pagination)
}

// Get godoc
// @Summary Get document or record format with versions
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
// @Router /record-formats/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Create godoc
// @Summary Upload a new document or record format
// @Description Multipart form: "metadata" holds the JSON CreateDocumentRequest, "file" the first version.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param metadata formData string true "CreateDocumentRequest as JSON"
// @Param file formData file true "First version file"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
// @Router /record-formats [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	raw := c.PostForm(metadataField)
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "metadata field is required"))
		return
	}
	var req dto.CreateDocumentRequest
	if err := binding.JSON.BindBody([]byte(raw), &req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	upload, closeFn, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	doc, err := h.documents.Create(c.Request.Context(), session, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// AddVersion godoc
// @Summary Upload a new version
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param versionNumber formData string true "Version number"
// @Param changes formData string false "Change notes"
// @Param activate formData bool false "Make the new version active"
// @Param file formData file true "Version file"
// @Success 201 {object} response.Envelope
// @Router /documents/{id}/versions [post]
// @Router /record-formats/{id}/versions [post]
func (h *DocumentHandler) AddVersion(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.AddVersionRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	upload, closeFn, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	doc, err := h.documents.AddVersion(c.Request.Context(), session, c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// ActivateVersion godoc
// @Summary Make a version the active one
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions/{versionId}/activate [put]
// @Router /record-formats/{id}/versions/{versionId}/activate [put]
func (h *DocumentHandler) ActivateVersion(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	doc, err := h.documents.ActivateVersion(c.Request.Context(), session, c.Param("id"), c.Param("versionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// DeactivateVersions godoc
// @Summary Deactivate every version (admin repair)
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions/deactivate [post]
// @Router /record-formats/{id}/versions/deactivate [post]
func (h *DocumentHandler) DeactivateVersions(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	doc, err := h.documents.DeactivateVersions(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Transition godoc
// @Summary Move a document through its lifecycle
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/status [post]
// @Router /record-formats/{id}/status [post]
func (h *DocumentHandler) Transition(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	doc, err := h.documents.Transition(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Download godoc
// @Summary Get a time-limited download link for a version file
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/versions/{versionId}/download [get]
// @Router /record-formats/{id}/versions/{versionId}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	link, err := h.documents.DownloadURL(c.Request.Context(), session, c.Param("id"), c.Param("versionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// Delete godoc
// @Summary Delete a document with its versions and files
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Router /documents/{id} [delete]
// @Router /record-formats/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
