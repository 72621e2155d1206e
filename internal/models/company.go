package models

import "time"

// ContactPerson is a named contact owned by a company.
type ContactPerson struct {
	ID        string `db:"id" json:"id"`
	CompanyID string `db:"company_id" json:"-"`
	Nombres   string `db:"nombres" json:"nombres"`
	Apellidos string `db:"apellidos" json:"apellidos"`
	Email     string `db:"email" json:"email"`
	Telefono  string `db:"telefono" json:"telefono"`
}

// Company is the top-level tenant owning projects.
type Company struct {
	ID             string          `db:"id" json:"id"`
	RazonSocial    string          `db:"razon_social" json:"razonSocial"`
	RUC            string          `db:"ruc" json:"ruc"`
	ContactPersons []ContactPerson `db:"-" json:"contactPersons"`
	IsActive       bool            `db:"is_active" json:"isActive"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// CompanyFilter narrows company listings.
type CompanyFilter struct {
	IsActive *bool
	IDs      []string
	Search   string
}
