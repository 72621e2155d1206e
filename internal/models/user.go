package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleCompanyUser UserRole = "company_user"
)

// Valid reports whether the role is one the platform understands.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleCompanyUser
}

// Permissions carries per-user visibility switches.
type Permissions struct {
	CanViewAllCompanyProjects bool `json:"canViewAllCompanyProjects"`
}

// User is a platform account. Credentials live with the hosted auth provider.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Telefono    *string     `json:"telefono,omitempty"`
	Role        UserRole    `json:"role"`
	CompanyID   *string     `json:"companyId,omitempty"`
	IsActive    bool        `json:"isActive"`
	Permissions Permissions `json:"permissions"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Identity projects the user into the narrow shape visibility decisions need.
func (u User) Identity() Identity {
	id := Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: u.Permissions,
	}
	if u.CompanyID != nil {
		id.CompanyID = *u.CompanyID
	}
	return id
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	CompanyID string
	Role      *UserRole
	Active    *bool
	IDs       []string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
