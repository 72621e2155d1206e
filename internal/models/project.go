package models

import "time"

// Project is a site or engagement under a company and the unit of document scoping.
type Project struct {
	ID             string          `db:"id" json:"id"`
	Sede           string          `db:"sede" json:"sede"`
	Descripcion    string          `db:"descripcion" json:"descripcion"`
	CompanyID      string          `db:"company_id" json:"companyId"`
	FechaInicio    time.Time       `db:"fecha_inicio" json:"fechaInicio"`
	FechaFin       *time.Time      `db:"fecha_fin" json:"fechaFin,omitempty"`
	Status         *string         `db:"status" json:"status,omitempty"`
	ContactPersons []ContactPerson `db:"-" json:"contactPersons"`
	IsActive       bool            `db:"is_active" json:"isActive"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// ProjectContact links a project to one of its company's users.
type ProjectContact struct {
	ProjectID string `db:"project_id" json:"projectId"`
	UserID    string `db:"user_id" json:"userId"`
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	CompanyID string
	IsActive  *bool
	IDs       []string
}

// ProjectContactFilter narrows contact join rows.
type ProjectContactFilter struct {
	ProjectID string
	UserID    string
}
