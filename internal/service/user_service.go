package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type userStore interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// UserService manages platform profiles: role, company and visibility
// permissions of accounts that sign in through the hosted auth provider.
type UserService struct {
	repo      userStore
	companies projectCompanyLookup
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userStore, companies projectCompanyLookup, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, companies: companies, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns profiles. Company users only see active colleagues of their own company.
func (s *UserService) List(ctx context.Context, session *models.Session, query dto.UserListQuery) ([]models.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	filter := models.UserFilter{CompanyID: strings.TrimSpace(query.CompanyID)}
	if query.Role != "" {
		role := models.UserRole(strings.ToLower(query.Role))
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "role must be admin or company_user")
		}
		filter.Role = &role
	}
	identity := session.Identity
	if !identity.IsAdmin() || !query.IncludeInactive {
		active := true
		filter.Active = &active
	}
	if !identity.IsAdmin() {
		if identity.CompanyID == "" {
			return []models.User{}, nil
		}
		filter.CompanyID = identity.CompanyID
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "users.list")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Get returns a profile. Profiles outside the caller's company are reported as missing.
func (s *UserService) Get(ctx context.Context, session *models.Session, id string) (*models.User, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "users.get")
	}
	identity := session.Identity
	if !identity.IsAdmin() && user.ID != identity.UserID {
		if user.CompanyID == nil || *user.CompanyID != identity.CompanyID || identity.CompanyID == "" {
			return nil, appErrors.ErrNotFound
		}
	}
	return user, nil
}

// Create registers the profile of an existing auth account.
func (s *UserService) Create(ctx context.Context, session *models.Session, req dto.UserRequest) (*models.User, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid user payload")
	}
	if req.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "id of the auth account is required")
	}
	if err := s.checkCompany(ctx, req); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Backend(err, "users.findByEmail")
	}

	user := &models.User{ID: req.ID, IsActive: true}
	applyUserRequest(user, req)
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, conflictOr(err, "a profile for this account already exists", "users.create")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionUserCreate, "user", user.ID, map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

// Update rewrites a profile. Admins cannot demote or deactivate themselves.
func (s *UserService) Update(ctx context.Context, session *models.Session, id string, req dto.UserRequest) (*models.User, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "users.get")
	}
	if user.ID == session.Identity.UserID {
		if req.Role != models.RoleAdmin || (req.IsActive != nil && !*req.IsActive) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot demote or deactivate your own account")
		}
	}
	if err := s.checkCompany(ctx, req); err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, req.Email) {
		if other, err := s.repo.FindByEmail(ctx, req.Email); err == nil && other.ID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Backend(err, "users.findByEmail")
		}
	}

	previous := map[string]interface{}{"role": user.Role, "isActive": user.IsActive, "permissions": user.Permissions}
	applyUserRequest(user, req)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, repoError(err, "users.update")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionUserUpdate, "user", user.ID, map[string]interface{}{
		"previous": previous,
		"role":     user.Role,
		"isActive": user.IsActive,
	})
	// Visibility may have changed.
	s.cache.InvalidateDashboards(ctx)
	return user, nil
}

// Deactivate marks a profile inactive. The auth account itself is untouched.
func (s *UserService) Deactivate(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if id == session.Identity.UserID {
		return appErrors.Clone(appErrors.ErrValidation, "you cannot deactivate your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return repoError(err, "users.get")
	}
	if !user.IsActive {
		return nil
	}
	user.IsActive = false
	if err := s.repo.Update(ctx, user); err != nil {
		return repoError(err, "users.update")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionUserDeactivate, "user", user.ID, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// checkCompany requires company users to belong to an active company.
func (s *UserService) checkCompany(ctx context.Context, req dto.UserRequest) error {
	if req.Role != models.RoleCompanyUser {
		return nil
	}
	if req.CompanyID == nil || strings.TrimSpace(*req.CompanyID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "companyId is required for company users")
	}
	company, err := s.companies.GetByID(ctx, *req.CompanyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "company does not exist")
		}
		return appErrors.Backend(err, "companies.get")
	}
	if !company.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "company is inactive")
	}
	return nil
}

func applyUserRequest(user *models.User, req dto.UserRequest) {
	user.Name = strings.TrimSpace(req.Name)
	user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	user.Telefono = req.Telefono
	user.Role = req.Role
	user.Permissions = req.Permissions
	user.CompanyID = nil
	if req.Role == models.RoleCompanyUser && req.CompanyID != nil {
		companyID := strings.TrimSpace(*req.CompanyID)
		user.CompanyID = &companyID
	}
	if req.Role == models.RoleAdmin {
		user.Permissions = models.Permissions{}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
}
