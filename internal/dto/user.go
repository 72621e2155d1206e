package dto

import "github.com/noah-isme/compliance-docs-api/internal/models"

// UserRequest captures POST/PUT /users payloads. ID is the hosted auth
// provider's subject and is only read on create.
type UserRequest struct {
	ID          string             `json:"id" validate:"omitempty,uuid"`
	Name        string             `json:"name" validate:"required,max=255"`
	Email       string             `json:"email" validate:"required,email"`
	Telefono    *string            `json:"telefono" validate:"omitempty,max=32"`
	Role        models.UserRole    `json:"role" validate:"required,oneof=admin company_user"`
	CompanyID   *string            `json:"companyId"`
	Permissions models.Permissions `json:"permissions"`
	IsActive    *bool              `json:"isActive"`
}

// UserListQuery binds GET /users query parameters.
type UserListQuery struct {
	CompanyID       string `form:"companyId"`
	Role            string `form:"role"`
	IncludeInactive bool   `form:"includeInactive"`
}
