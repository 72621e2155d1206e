package models

import "time"

// Identity is the caller a request acts on behalf of.
type Identity struct {
	UserID      string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Role        UserRole    `json:"role"`
	CompanyID   string      `json:"companyId,omitempty"`
	Permissions Permissions `json:"permissions"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Session is the authenticated context handed to services explicitly.
type Session struct {
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
	TokenID   string    `json:"-"`
}
