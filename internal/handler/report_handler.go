package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

type reportService interface {
	Compliance(ctx context.Context, session *models.Session, query dto.ReportQuery) (*service.ReportResult, error)
}

// ReportHandler exposes report exports.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Compliance godoc
// @Summary Export the compliance report
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param projectId query string false "Limit to one project"
// @Param track query string false "document or record"
// @Param status query string false "Lifecycle status"
// @Success 200 {file} file
// @Router /reports/compliance [get]
func (h *ReportHandler) Compliance(c *gin.Context) {
	session := currentSession(c)
	if session == nil {
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.reports.Compliance(c.Request.Context(), session, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
