package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/database"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type projectStore interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	ListContacts(ctx context.Context, filter models.ProjectContactFilter) ([]models.ProjectContact, error)
	Create(ctx context.Context, project *models.Project, contactIDs []string) error
	Update(ctx context.Context, project *models.Project, contactIDs []string) error
	DeleteCascade(ctx context.Context, id string) error
}

type projectCompanyLookup interface {
	GetByID(ctx context.Context, id string) (*models.Company, error)
}

type projectUserLister interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// ProjectService manages projects and resolves which projects a caller may see.
type ProjectService struct {
	repo      projectStore
	companies projectCompanyLookup
	users     projectUserLister
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService constructs the service.
func NewProjectService(repo projectStore, companies projectCompanyLookup, users projectUserLister, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{repo: repo, companies: companies, users: users, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Scope loads the data the visibility rule needs and returns the caller's
// visible project set along with the visible projects themselves.
func (s *ProjectService) Scope(ctx context.Context, identity models.Identity) (compliance.ProjectScope, []models.Project, error) {
	var filter models.ProjectFilter
	switch identity.Role {
	case models.RoleAdmin:
	case models.RoleCompanyUser:
		if identity.CompanyID == "" || identity.UserID == "" {
			return compliance.ProjectScope{}, []models.Project{}, nil
		}
		filter.CompanyID = identity.CompanyID
	default:
		return compliance.ProjectScope{}, []models.Project{}, nil
	}

	projects, err := s.repo.List(ctx, filter)
	if err != nil {
		return compliance.ProjectScope{}, nil, repoError(err, "projects.list")
	}
	var contacts []models.ProjectContact
	if identity.Role == models.RoleCompanyUser && !identity.Permissions.CanViewAllCompanyProjects {
		contacts, err = s.repo.ListContacts(ctx, models.ProjectContactFilter{UserID: identity.UserID})
		if err != nil {
			return compliance.ProjectScope{}, nil, repoError(err, "projectContacts.list")
		}
	}
	scope := compliance.Scope(identity, projects, contacts)
	return scope, compliance.VisibleProjects(identity, projects, contacts), nil
}

// List returns visible projects, optionally narrowed to one company.
func (s *ProjectService) List(ctx context.Context, session *models.Session, query dto.ProjectListQuery) ([]models.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	_, projects, err := s.Scope(ctx, session.Identity)
	if err != nil {
		return nil, err
	}
	includeInactive := query.IncludeInactive && session.Identity.IsAdmin()
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if query.CompanyID != "" && p.CompanyID != query.CompanyID {
			continue
		}
		if !p.IsActive && !includeInactive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Get returns one project; projects outside the caller's scope are reported missing.
func (s *ProjectService) Get(ctx context.Context, session *models.Session, id string) (*models.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "projects.get")
	}
	if err := s.ensureVisible(ctx, session.Identity, *project); err != nil {
		return nil, err
	}
	return project, nil
}

// EnsureVisible fails with NOT_FOUND unless projectID is in the caller's scope.
func (s *ProjectService) EnsureVisible(ctx context.Context, identity models.Identity, projectID string) (*models.Project, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, repoError(err, "projects.get")
	}
	if err := s.ensureVisible(ctx, identity, *project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) ensureVisible(ctx context.Context, identity models.Identity, project models.Project) error {
	if identity.IsAdmin() {
		return nil
	}
	var contacts []models.ProjectContact
	if !identity.Permissions.CanViewAllCompanyProjects {
		var err error
		contacts, err = s.repo.ListContacts(ctx, models.ProjectContactFilter{ProjectID: project.ID, UserID: identity.UserID})
		if err != nil {
			return repoError(err, "projectContacts.list")
		}
	}
	if !compliance.CanSeeProject(identity, project, contacts) {
		return appErrors.ErrNotFound
	}
	return nil
}

// Create registers a project under an active company with at least one contact.
func (s *ProjectService) Create(ctx context.Context, session *models.Session, req dto.ProjectRequest) (*models.Project, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid project payload")
	}
	contactIDs := dedupe(req.ContactPersonIDs)
	if err := s.validateContacts(ctx, req.CompanyID, contactIDs); err != nil {
		return nil, err
	}
	project := projectFromRequest(req)
	project.IsActive = true
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, project, contactIDs); err != nil {
		return nil, repoError(err, "projects.create")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionProjectCreate, "project", project.ID, map[string]interface{}{"companyId": project.CompanyID, "contacts": contactIDs})
	s.cache.InvalidateDashboards(ctx)
	return s.reload(ctx, project)
}

// Update rewrites a project and replaces its contacts.
func (s *ProjectService) Update(ctx context.Context, session *models.Session, id string, req dto.ProjectRequest) (*models.Project, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid project payload")
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "projects.get")
	}
	if req.CompanyID != existing.CompanyID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a project cannot move to another company")
	}
	contactIDs := dedupe(req.ContactPersonIDs)
	if err := s.validateContacts(ctx, existing.CompanyID, contactIDs); err != nil {
		return nil, err
	}
	project := projectFromRequest(req)
	project.ID = existing.ID
	project.CreatedAt = existing.CreatedAt
	project.IsActive = existing.IsActive
	if req.IsActive != nil {
		project.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, project, contactIDs); err != nil {
		return nil, repoError(err, "projects.update")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionProjectUpdate, "project", project.ID, map[string]interface{}{"contacts": contactIDs})
	s.cache.InvalidateDashboards(ctx)
	return s.reload(ctx, project)
}

// Delete removes a project together with its contact rows. Projects that still
// own documents or record formats cannot be deleted.
func (s *ProjectService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "project still has documents or record formats")
		}
		return repoError(err, "projects.deleteCascade")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionProjectDelete, "project", id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

func (s *ProjectService) validateContacts(ctx context.Context, companyID string, contactIDs []string) error {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "companyId must reference an active company")
		}
		return repoError(err, "companies.get")
	}
	var users []models.User
	if len(contactIDs) > 0 {
		users, err = s.users.List(ctx, models.UserFilter{IDs: contactIDs})
		if err != nil {
			return repoError(err, "users.list")
		}
	}
	return compliance.ValidateProjectContacts(company, contactIDs, users)
}

func (s *ProjectService) reload(ctx context.Context, project *models.Project) (*models.Project, error) {
	fresh, err := s.repo.GetByID(ctx, project.ID)
	if err != nil {
		s.logger.Warn("reload project failed", zap.String("project_id", project.ID), zap.Error(err))
		return project, nil
	}
	return fresh, nil
}

func projectFromRequest(req dto.ProjectRequest) *models.Project {
	return &models.Project{
		Sede:        strings.TrimSpace(req.Sede),
		Descripcion: strings.TrimSpace(req.Descripcion),
		CompanyID:   req.CompanyID,
		FechaInicio: req.FechaInicio,
		FechaFin:    req.FechaFin,
		Status:      req.Status,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
