package compliance

import (
	"fmt"
	"strings"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

// ValidateProjectContacts checks that project belongs to an active company and
// that every contact is an active user of that company. At least one contact is required.
func ValidateProjectContacts(company *models.Company, contactIDs []string, users []models.User) error {
	if company == nil || !company.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "companyId must reference an active company")
	}
	if len(contactIDs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "a project needs at least one contact person")
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range contactIDs {
		u, ok := byID[id]
		if !ok || !u.IsActive {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("contact %s is not an active user", id))
		}
		if u.CompanyID == nil || *u.CompanyID != company.ID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("contact %s does not belong to company %s", id, company.RazonSocial))
		}
	}
	return nil
}

// ValidateCategory checks that category can hold artifacts of the given track.
func ValidateCategory(track models.Track, category *models.DocumentCategory) error {
	if category == nil || !category.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "categoryId must reference an active category")
	}
	if category.Type != track.CategoryType() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("category %s is of type %s, expected %s", category.Name, category.Type, track.CategoryType()))
	}
	return nil
}

// ValidateRoles rejects role rows whose kind does not match the list they were sent in.
func ValidateRoles(kind models.RoleKind, roles []models.DocumentRole) error {
	for _, r := range roles {
		if r.Role != kind {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("role %s listed as %s", r.Role, kind))
		}
		if strings.TrimSpace(r.Email) == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s email is required", kind))
		}
	}
	return nil
}
