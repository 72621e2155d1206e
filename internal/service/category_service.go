package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/catalog"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type categoryStore interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.DocumentCategory, error)
	GetByID(ctx context.Context, id string) (*models.DocumentCategory, error)
	Create(ctx context.Context, category *models.DocumentCategory) error
	Update(ctx context.Context, category *models.DocumentCategory) error
	SoftDelete(ctx context.Context, id string) error
	Upsert(ctx context.Context, category *models.DocumentCategory) (bool, error)
}

// CategoryService manages the shared normative category catalog.
type CategoryService struct {
	repo      categoryStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs the service.
func NewCategoryService(repo categoryStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns categories; inactive ones only for admins who ask.
func (s *CategoryService) List(ctx context.Context, session *models.Session, query dto.CategoryListQuery) ([]models.DocumentCategory, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if query.Type != "" && query.Type != models.CategoryTypeDocument && query.Type != models.CategoryTypeRecord {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be document or record")
	}
	filter := models.CategoryFilter{Type: query.Type}
	if !(query.IncludeInactive && session.Identity.IsAdmin()) {
		active := true
		filter.IsActive = &active
	}
	categories, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "categories.list")
	}
	if categories == nil {
		categories = []models.DocumentCategory{}
	}
	return categories, nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, session *models.Session, id string) (*models.DocumentCategory, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "categories.get")
	}
	return category, nil
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, session *models.Session, req dto.CategoryRequest) (*models.DocumentCategory, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid category payload")
	}
	category := &models.DocumentCategory{
		Name:                strings.TrimSpace(req.Name),
		Description:         strings.TrimSpace(req.Description),
		NormativeReference:  strings.TrimSpace(req.NormativeReference),
		Type:                req.Type,
		IsRequired:          req.IsRequired,
		RenewalPeriodMonths: req.RenewalPeriodMonths,
		IsActive:            true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, conflictOr(err, "a category with this name already exists", "categories.create")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCategoryCreate, "category", category.ID, map[string]string{"name": category.Name, "type": string(category.Type)})
	s.cache.InvalidateDashboards(ctx)
	return category, nil
}

// Update edits a category. Its type cannot change once documents may reference it.
func (s *CategoryService) Update(ctx context.Context, session *models.Session, id string, req dto.CategoryRequest) (*models.DocumentCategory, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid category payload")
	}
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "categories.get")
	}
	if req.Type != category.Type {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category type cannot be changed")
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)
	category.NormativeReference = strings.TrimSpace(req.NormativeReference)
	category.IsRequired = req.IsRequired
	category.RenewalPeriodMonths = req.RenewalPeriodMonths
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, conflictOr(err, "a category with this name already exists", "categories.update")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCategoryUpdate, "category", category.ID, nil)
	s.cache.InvalidateDashboards(ctx)
	return category, nil
}

// Delete soft-deletes a category.
func (s *CategoryService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return repoError(err, "categories.delete")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionCategoryDelete, "category", id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// Import upserts every category of a catalog file keyed by (type, name).
func (s *CategoryService) Import(ctx context.Context, session *models.Session, file *catalog.File) (*dto.CatalogImportResponse, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	return s.ImportCatalog(ctx, file)
}

// ImportCatalog is Import without a caller, used by the seeding command.
func (s *CategoryService) ImportCatalog(ctx context.Context, file *catalog.File) (*dto.CatalogImportResponse, error) {
	if file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "catalog is empty")
	}
	if err := file.Validate(); err != nil {
		return nil, appErrors.Invalid(err, err.Error())
	}
	result := &dto.CatalogImportResponse{}
	for _, category := range file.Models() {
		category := category
		inserted, err := s.repo.Upsert(ctx, &category)
		if err != nil {
			return result, repoError(err, "categories.upsert")
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	s.logger.Info("category catalog imported", zap.Int("inserted", result.Inserted), zap.Int("updated", result.Updated))
	s.cache.InvalidateDashboards(ctx)
	return result, nil
}
