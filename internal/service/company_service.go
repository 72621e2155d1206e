package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type companyStore interface {
	List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, error)
	GetByID(ctx context.Context, id string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	SoftDelete(ctx context.Context, id string) error
}

// CompanyService manages companies. Writes are admin-only; company users only
// ever see their own company.
type CompanyService struct {
	repo      companyStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyService constructs the service.
func NewCompanyService(repo companyStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns the companies visible to the caller.
func (s *CompanyService) List(ctx context.Context, session *models.Session, query dto.CompanyListQuery) ([]models.Company, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	filter := models.CompanyFilter{Search: strings.TrimSpace(query.Search)}
	identity := session.Identity
	if !identity.IsAdmin() || !query.IncludeInactive {
		active := true
		filter.IsActive = &active
	}
	if !identity.IsAdmin() {
		if identity.CompanyID == "" {
			return []models.Company{}, nil
		}
		filter.IDs = []string{identity.CompanyID}
	}
	companies, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "companies.list")
	}
	if companies == nil {
		companies = []models.Company{}
	}
	return companies, nil
}

// Get returns one company; other companies are reported as missing to company users.
func (s *CompanyService) Get(ctx context.Context, session *models.Session, id string) (*models.Company, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !session.Identity.IsAdmin() && session.Identity.CompanyID != id {
		return nil, appErrors.ErrNotFound
	}
	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "companies.get")
	}
	if !company.IsActive && !session.Identity.IsAdmin() {
		return nil, appErrors.ErrNotFound
	}
	return company, nil
}

// Create registers a company with its contact persons.
func (s *CompanyService) Create(ctx context.Context, session *models.Session, req dto.CompanyRequest) (*models.Company, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid company payload")
	}
	company := companyFromRequest(req)
	company.IsActive = true
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, conflictOr(err, "a company with this RUC already exists", "companies.create")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCompanyCreate, "company", company.ID, map[string]string{"ruc": company.RUC})
	s.cache.InvalidateDashboards(ctx)
	return company, nil
}

// Update rewrites a company and replaces its contact persons.
func (s *CompanyService) Update(ctx context.Context, session *models.Session, id string, req dto.CompanyRequest) (*models.Company, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid company payload")
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "companies.get")
	}
	company := companyFromRequest(req)
	company.ID = existing.ID
	company.CreatedAt = existing.CreatedAt
	company.IsActive = existing.IsActive
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, conflictOr(err, "a company with this RUC already exists", "companies.update")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCompanyUpdate, "company", company.ID, nil)
	s.cache.InvalidateDashboards(ctx)
	return company, nil
}

// Delete soft-deletes a company.
func (s *CompanyService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return repoError(err, "companies.delete")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCompanyDelete, "company", id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

func companyFromRequest(req dto.CompanyRequest) *models.Company {
	company := &models.Company{
		RazonSocial:    strings.TrimSpace(req.RazonSocial),
		RUC:            strings.TrimSpace(req.RUC),
		ContactPersons: make([]models.ContactPerson, 0, len(req.ContactPersons)),
	}
	for _, c := range req.ContactPersons {
		company.ContactPersons = append(company.ContactPersons, models.ContactPerson{
			Nombres:   strings.TrimSpace(c.Nombres),
			Apellidos: strings.TrimSpace(c.Apellidos),
			Email:     strings.ToLower(strings.TrimSpace(c.Email)),
			Telefono:  strings.TrimSpace(c.Telefono),
		})
	}
	return company
}
