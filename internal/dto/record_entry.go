package dto

import (
	"time"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

// CreateRecordEntryRequest is the metadata part of an entry upload.
type CreateRecordEntryRequest struct {
	Nombre           string    `json:"nombre" form:"nombre" validate:"required,max=255"`
	FechaRealizacion time.Time `json:"fechaRealizacion" form:"fechaRealizacion" time_format:"2006-01-02" validate:"required"`
}

// EntryDecisionRequest approves or rejects a pending entry.
type EntryDecisionRequest struct {
	Decision models.EntryStatus `json:"decision" validate:"required,oneof=approved rejected"`
	Notes    string             `json:"notes" validate:"max=2000"`
}

// RecordEntryListQuery binds GET /record-entries query parameters.
type RecordEntryListQuery struct {
	FormatID string             `form:"formatId"`
	Status   models.EntryStatus `form:"status"`
	Page     int                `form:"page"`
	PageSize int                `form:"pageSize"`
}
