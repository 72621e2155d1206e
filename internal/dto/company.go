package dto

// ContactPersonRequest is one company contact in a create or update payload.
type ContactPersonRequest struct {
	Nombres   string `json:"nombres" validate:"required,max=120"`
	Apellidos string `json:"apellidos" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Telefono  string `json:"telefono" validate:"omitempty,max=32"`
}

// CompanyRequest captures POST/PUT /companies payloads. Contacts are replaced wholesale on update.
type CompanyRequest struct {
	RazonSocial    string                 `json:"razonSocial" validate:"required,max=255"`
	RUC            string                 `json:"ruc" validate:"required,len=11,numeric"`
	ContactPersons []ContactPersonRequest `json:"contactPersons" validate:"dive"`
	IsActive       *bool                  `json:"isActive"`
}

// CompanyListQuery binds GET /companies query parameters.
type CompanyListQuery struct {
	Search          string `form:"search"`
	IncludeInactive bool   `form:"includeInactive"`
}
