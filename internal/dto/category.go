package dto

import "github.com/noah-isme/compliance-docs-api/internal/models"

// CategoryRequest captures POST/PUT /categories payloads. Type is fixed after creation.
type CategoryRequest struct {
	Name                string              `json:"name" validate:"required,max=255"`
	Description         string              `json:"description" validate:"max=2000"`
	NormativeReference  string              `json:"normativeReference" validate:"max=255"`
	Type                models.CategoryType `json:"type" validate:"required,oneof=document record"`
	IsRequired          bool                `json:"isRequired"`
	RenewalPeriodMonths int                 `json:"renewalPeriodMonths" validate:"min=0,max=120"`
	IsActive            *bool               `json:"isActive"`
}

// CategoryListQuery binds GET /categories query parameters.
type CategoryListQuery struct {
	Type            models.CategoryType `form:"type"`
	IncludeInactive bool                `form:"includeInactive"`
}

// CatalogImportResponse reports what a catalog import changed.
type CatalogImportResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
