package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type recordEntryService interface {
	List(ctx context.Context, session *models.Session, query dto.RecordEntryListQuery) ([]models.RecordEntry, *models.Pagination, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.RecordEntry, error)
	Create(ctx context.Context, session *models.Session, formatID string, req dto.CreateRecordEntryRequest, file dto.FileUpload) (*models.RecordEntry, error)
	Decide(ctx context.Context, session *models.Session, id string, req dto.EntryDecisionRequest) (*models.RecordEntry, error)
	DownloadURL(ctx context.Context, session *models.Session, id string) (*dto.DownloadResponse, error)
	Delete(ctx context.Context, session *models.Session, id string) error
}

// RecordEntryHandler exposes filled-in record entries.
type RecordEntryHandler struct {
	entries recordEntryService
}

// NewRecordEntryHandler constructs RecordEntryHandler.
func NewRecordEntryHandler(entries recordEntryService) *RecordEntryHandler {
	return &RecordEntryHandler{entries: entries}
}

// List godoc
// @Summary List visible record entries
// @Tags RecordEntries
// @Produce json
// @Param formatId query string false "Filter by record format"
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /record-entries [get]
func (h *RecordEntryHandler) List(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.RecordEntryListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entries, pagination, err := h.entries.List(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get record entry
// @Tags RecordEntries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /record-entries/{id} [get]
func (h *RecordEntryHandler) Get(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Create godoc
// @Summary Upload a record entry under a record format
// @Tags RecordEntries
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Record format ID"
// @Param nombre formData string true "Entry name"
// @Param fechaRealizacion formData string true "Date performed (YYYY-MM-DD)"
// @Param file formData file true "Entry file"
// @Success 201 {object} response.Envelope
// @Router /record-formats/{id}/entries [post]
func (h *RecordEntryHandler) Create(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.CreateRecordEntryRequest
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

	entry, err := h.entries.Create(c.Request.Context(), session, c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Decide godoc
// @Summary Approve or reject a pending entry
// @Tags RecordEntries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.EntryDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /record-entries/{id}/decision [post]
func (h *RecordEntryHandler) Decide(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var req dto.EntryDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.entries.Decide(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entry)
}

// Download godoc
// @Summary Get a time-limited download link for an entry file
// @Tags RecordEntries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /record-entries/{id}/download [get]
func (h *RecordEntryHandler) Download(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	link, err := h.entries.DownloadURL(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// Delete godoc
// @Summary Delete a record entry
// @Tags RecordEntries
// @Param id path string true "Entry ID"
// @Success 204
// @Router /record-entries/{id} [delete]
func (h *RecordEntryHandler) Delete(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	if err := h.entries.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
