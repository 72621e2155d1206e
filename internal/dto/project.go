package dto

import "time"

// ProjectRequest captures POST/PUT /projects payloads.
type ProjectRequest struct {
	Sede             string     `json:"sede" validate:"required,max=255"`
	Descripcion      string     `json:"descripcion" validate:"max=2000"`
	CompanyID        string     `json:"companyId" validate:"required"`
	FechaInicio      time.Time  `json:"fechaInicio" validate:"required"`
	FechaFin         *time.Time `json:"fechaFin"`
	Status           *string    `json:"status" validate:"omitempty,max=50"`
	ContactPersonIDs []string   `json:"contactPersonIds" validate:"required,min=1,dive,required"`
	IsActive         *bool      `json:"isActive"`
}

// ProjectListQuery binds GET /projects query parameters.
type ProjectListQuery struct {
	CompanyID       string `form:"companyId"`
	IncludeInactive bool   `form:"includeInactive"`
}
