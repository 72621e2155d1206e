package dto

import "github.com/noah-isme/compliance-docs-api/internal/models"

// ReportFormat selects the export renderer.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportQuery binds GET /reports/compliance query parameters.
type ReportQuery struct {
	Format    ReportFormat          `form:"format" validate:"omitempty,oneof=csv pdf"`
	ProjectID string                `form:"projectId"`
	Track     models.Track          `form:"track" validate:"omitempty,oneof=document record"`
	Status    models.DocumentStatus `form:"status"`
}

// ReconcileResponse summarises one expiration reconciliation pass.
type ReconcileResponse struct {
	Checked int      `json:"checked"`
	Expired int      `json:"expired"`
	Failed  []string `json:"failed,omitempty"`
}
