package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/storage"
)

type documentStore interface {
	Track() models.Track
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Mutate(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error)
	Delete(ctx context.Context, id string) ([]string, error)
}

type categoryLookup interface {
	GetByID(ctx context.Context, id string) (*models.DocumentCategory, error)
}

type projectScoper interface {
	Scope(ctx context.Context, identity models.Identity) (compliance.ProjectScope, []models.Project, error)
	EnsureVisible(ctx context.Context, identity models.Identity, projectID string) (*models.Project, error)
}

// DocumentServiceConfig tunes uploads, download links and expiry reporting.
type DocumentServiceConfig struct {
	ExpiringSoonDays int
	MaxFileSize      int64
	AllowedMIMEs     []string
	URLTTL           time.Duration
}

// DocumentService runs the upload, versioning and approval workflow for one track.
type DocumentService struct {
	repo       documentStore
	categories categoryLookup
	projects   projectScoper
	files      storage.FileStore
	audit      auditLogger
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        DocumentServiceConfig
	now        func() time.Time
}

// NewDocumentService constructs a service bound to repo's track.
func NewDocumentService(repo documentStore, categories categoryLookup, projects projectScoper, files storage.FileStore, audit auditLogger, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpiringSoonDays <= 0 {
		cfg.ExpiringSoonDays = compliance.DefaultExpiringSoonDays
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 30 * time.Minute
	}
	return &DocumentService{
		repo:       repo,
		categories: categories,
		projects:   projects,
		files:      files,
		audit:      audit,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger.With(zap.String("track", string(repo.Track()))),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Track reports which artifact track the service manages.
func (s *DocumentService) Track() models.Track { return s.repo.Track() }

func (s *DocumentService) resource() string {
	if s.repo.Track() == models.TrackRecord {
		return "record_format"
	}
	return "document"
}

func (s *DocumentService) objectPrefix() string {
	if s.repo.Track() == models.TrackRecord {
		return "record-formats"
	}
	return "documents"
}

// List returns the visible parents, newest first, each decorated with its expiry state.
func (s *DocumentService) List(ctx context.Context, session *models.Session, query dto.DocumentListQuery) ([]dto.DocumentResponse, *models.Pagination, error) {
	if err := requireSession(session); err != nil {
		return nil, nil, err
	}
	if query.Status != "" && !compliance.ValidStatus(query.Status) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
	}
	scope, _, err := s.projects.Scope(ctx, session.Identity)
	if err != nil {
		return nil, nil, err
	}

	filter := models.DocumentFilter{
		CategoryID: query.CategoryID,
		Status:     query.Status,
		Search:     strings.TrimSpace(query.Search),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	switch {
	case query.ProjectID != "":
		if !scope.Contains(query.ProjectID) {
			return []dto.DocumentResponse{}, paginate(query.Page, query.PageSize, 0), nil
		}
		filter.ProjectIDs = []string{query.ProjectID}
	case !scope.All():
		if scope.Empty() {
			return []dto.DocumentResponse{}, paginate(query.Page, query.PageSize, 0), nil
		}
		filter.ProjectIDs = scope.IDs()
	}

	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.metrics.RecordBackendError(s.resource() + "s.list")
		return nil, nil, repoError(err, s.resource()+"s.list")
	}
	asOf := s.now()
	out := make([]dto.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, s.decorate(&docs[i], asOf))
	}
	return out, paginate(query.Page, query.PageSize, total), nil
}

// Get returns one parent with versions and roles.
func (s *DocumentService) Get(ctx context.Context, session *models.Session, id string) (*dto.DocumentResponse, error) {
	doc, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	resp := s.decorate(doc, s.now())
	return &resp, nil
}

// Create stores the first version file and inserts the parent in draft with
// that version active.
func (s *DocumentService) Create(ctx context.Context, session *models.Session, req dto.CreateDocumentRequest, file dto.FileUpload) (*dto.DocumentResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid "+s.resource()+" payload")
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}
	if req.FechaCreacion != nil && req.FechaVencimiento != nil && req.FechaVencimiento.Before(*req.FechaCreacion) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fechaVencimiento must not precede fechaCreacion")
	}

	project, err := s.projects.EnsureVisible(ctx, session.Identity, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "projectId must reference an active project")
	}
	category, err := s.categories.GetByID(ctx, req.CategoryID)
	if err != nil {
		if err = repoError(err, "categories.get"); errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "categoryId must reference an active category")
		}
		return nil, err
	}
	if err := compliance.ValidateCategory(s.repo.Track(), category); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &models.Document{
		ID:               uuid.NewString(),
		Track:            s.repo.Track(),
		Nombre:           strings.TrimSpace(req.Nombre),
		CategoryID:       category.ID,
		ProjectID:        project.ID,
		Codigo:           strings.TrimSpace(req.Codigo),
		FechaCreacion:    now,
		FechaVencimiento: req.FechaVencimiento,
		Status:           models.StatusDraft,
		CreatedBy:        session.Identity.UserID,
	}
	if req.FechaCreacion != nil {
		doc.FechaCreacion = *req.FechaCreacion
	}
	doc.Elaborators = rolesFromRequest(models.RoleElaborator, req.Elaborators)
	doc.Reviewers = rolesFromRequest(models.RoleReviewer, req.Reviewers)
	doc.Approvers = rolesFromRequest(models.RoleApprover, req.Approvers)
	for kind, roles := range map[models.RoleKind][]models.DocumentRole{
		models.RoleElaborator: doc.Elaborators,
		models.RoleReviewer:   doc.Reviewers,
		models.RoleApprover:   doc.Approvers,
	} {
		if err := compliance.ValidateRoles(kind, roles); err != nil {
			return nil, err
		}
	}

	version, err := s.storeFile(ctx, session, doc.ID, file)
	if err != nil {
		return nil, err
	}
	version.VersionNumber = req.VersionNumber
	version.Changes = req.Changes
	if err := compliance.AddVersion(doc, *version, true); err != nil {
		s.discard(ctx, version.FilePath)
		return nil, err
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		s.discard(ctx, version.FilePath)
		s.metrics.RecordBackendError(s.resource() + "s.create")
		return nil, conflictOr(err, "a "+s.resource()+" with this code already exists in the project", s.resource()+"s.create")
	}

	s.metrics.RecordVersionUpload(s.repo.Track())
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionDocumentCreate, s.resource(), doc.ID,
		map[string]string{"codigo": doc.Codigo, "version": doc.Version, "projectId": doc.ProjectID})
	s.cache.InvalidateDashboards(ctx)
	resp := s.decorate(doc, now)
	return &resp, nil
}

// AddVersion stores a new file and appends it under the parent's row lock.
func (s *DocumentService) AddVersion(ctx context.Context, session *models.Session, id string, req dto.AddVersionRequest, file dto.FileUpload) (*dto.DocumentResponse, error) {
	if _, err := s.load(ctx, session, id); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid version payload")
	}
	if err := s.checkFile(file); err != nil {
		return nil, err
	}

	version, err := s.storeFile(ctx, session, id, file)
	if err != nil {
		return nil, err
	}
	version.VersionNumber = req.VersionNumber
	version.Changes = req.Changes

	doc, err := s.repo.Mutate(ctx, id, func(doc *models.Document) error {
		return compliance.AddVersion(doc, *version, req.Activate)
	})
	if err != nil {
		s.discard(ctx, version.FilePath)
		return nil, s.mutationError(err, "versions.add")
	}

	s.metrics.RecordVersionUpload(s.repo.Track())
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionVersionUpload, s.resource(), id,
		map[string]interface{}{"versionNumber": strings.TrimSpace(req.VersionNumber), "active": doc.Version == strings.TrimSpace(req.VersionNumber)})
	resp := s.decorate(doc, s.now())
	return &resp, nil
}

// ActivateVersion makes one version the single active version. Admin only.
func (s *DocumentService) ActivateVersion(ctx context.Context, session *models.Session, id, versionID string) (*dto.DocumentResponse, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	doc, err := s.repo.Mutate(ctx, id, func(doc *models.Document) error {
		return compliance.ActivateVersion(doc, versionID)
	})
	if err != nil {
		return nil, s.mutationError(err, "versions.activate")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionVersionActivate, s.resource(), id, map[string]string{"versionId": versionID})
	resp := s.decorate(doc, s.now())
	return &resp, nil
}

// DeactivateVersions clears every active flag. Admin repair path.
func (s *DocumentService) DeactivateVersions(ctx context.Context, session *models.Session, id string) (*dto.DocumentResponse, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	doc, err := s.repo.Mutate(ctx, id, func(doc *models.Document) error {
		compliance.DeactivateAllVersions(doc)
		return nil
	})
	if err != nil {
		return nil, s.mutationError(err, "versions.deactivate")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionVersionActivate, s.resource(), id, map[string]bool{"deactivatedAll": true})
	resp := s.decorate(doc, s.now())
	return &resp, nil
}

// Transition submits, approves or rejects a parent.
func (s *DocumentService) Transition(ctx context.Context, session *models.Session, id string, req dto.TransitionRequest) (*dto.DocumentResponse, error) {
	if _, err := s.load(ctx, session, id); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid transition payload")
	}

	var from models.DocumentStatus
	doc, err := s.repo.Mutate(ctx, id, func(doc *models.Document) error {
		from = doc.Status
		switch req.Status {
		case models.StatusPendingReview:
			return compliance.Submit(doc)
		case models.StatusApproved:
			return compliance.Approve(doc, session.Identity, s.now())
		case models.StatusRejected:
			return compliance.Reject(doc, session.Identity, req.Notes)
		}
		return compliance.ValidateTransition(doc.Status, req.Status)
	})
	if err != nil {
		return nil, s.mutationError(err, "status.transition")
	}

	s.metrics.RecordTransition(s.repo.Track(), doc.Status)
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionStatusTransition, s.resource(), id,
		map[string]string{"from": string(from), "to": string(doc.Status)})
	s.cache.InvalidateDashboards(ctx)
	resp := s.decorate(doc, s.now())
	return &resp, nil
}

// DownloadURL returns a time-limited link to one version's file.
func (s *DocumentService) DownloadURL(ctx context.Context, session *models.Session, id, versionID string) (*dto.DownloadResponse, error) {
	doc, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	var target *models.DocumentVersion
	for i := range doc.Versions {
		if doc.Versions[i].ID == versionID {
			target = &doc.Versions[i]
			break
		}
	}
	if target == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
	}
	if target.FilePath == nil || *target.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "version has no stored file")
	}
	url, expiresAt, err := s.files.URL(ctx, *target.FilePath, s.cfg.URLTTL)
	if err != nil {
		s.metrics.RecordBackendError("storage.url")
		return nil, repoError(err, "storage.url")
	}
	return &dto.DownloadResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// Delete removes a parent and its stored files. Admin only.
func (s *DocumentService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	paths, err := s.repo.Delete(ctx, id)
	if err != nil {
		return repoError(err, s.resource()+"s.delete")
	}
	for _, path := range paths {
		if err := s.files.Delete(ctx, path); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("path", path), zap.Error(err))
		}
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionDocumentDelete, s.resource(), id, map[string]int{"files": len(paths)})
	s.cache.InvalidateDashboards(ctx)
	return nil
}

// load fetches a parent and hides it unless its project is visible.
func (s *DocumentService) load(ctx context.Context, session *models.Session, id string) (*models.Document, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, s.resource()+"s.get")
	}
	if _, err := s.projects.EnsureVisible(ctx, session.Identity, doc.ProjectID); err != nil {
		return nil, err
	}
	doc.Track = s.repo.Track()
	return doc, nil
}

func (s *DocumentService) decorate(doc *models.Document, asOf time.Time) dto.DocumentResponse {
	doc.Track = s.repo.Track()
	if doc.Versions == nil {
		doc.Versions = []models.DocumentVersion{}
	}
	return dto.DocumentResponse{Document: *doc, Expiration: compliance.StatusOf(doc, asOf, s.cfg.ExpiringSoonDays)}
}

func (s *DocumentService) checkFile(file dto.FileUpload) error {
	return checkUpload(file, s.cfg.MaxFileSize, s.cfg.AllowedMIMEs)
}

// storeFile writes the upload and returns the version row describing it.
func (s *DocumentService) storeFile(ctx context.Context, session *models.Session, parentID string, file dto.FileUpload) (*models.DocumentVersion, error) {
	versionID := uuid.NewString()
	key := storage.ObjectKey(s.objectPrefix(), parentID, versionID, file.Filename)
	if err := s.files.Put(ctx, key, file.Content, file.Size, file.ContentType); err != nil {
		s.metrics.RecordBackendError("storage.put")
		return nil, repoError(err, "storage.put")
	}
	return &models.DocumentVersion{
		ID:         versionID,
		FileName:   storage.SanitizeFilename(file.Filename),
		FileSize:   file.Size,
		MimeType:   file.ContentType,
		FilePath:   &key,
		UploadedBy: session.Identity.UserID,
		UploadedAt: s.now().UTC(),
	}, nil
}

func (s *DocumentService) discard(ctx context.Context, path *string) {
	if path == nil {
		return
	}
	if err := s.files.Delete(ctx, *path); err != nil {
		s.logger.Warn("failed to discard orphaned file", zap.String("path", *path), zap.Error(err))
	}
}

func (s *DocumentService) mutationError(err error, operation string) error {
	mapped := repoError(err, operation)
	if errors.Is(mapped, appErrors.ErrBackendUnavailable) {
		s.metrics.RecordBackendError(operation)
	}
	return mapped
}

func rolesFromRequest(kind models.RoleKind, reqs []dto.RoleRequest) []models.DocumentRole {
	roles := make([]models.DocumentRole, 0, len(reqs))
	for _, r := range reqs {
		roles = append(roles, models.DocumentRole{
			ID:        uuid.NewString(),
			Nombres:   strings.TrimSpace(r.Nombres),
			Apellidos: strings.TrimSpace(r.Apellidos),
			Email:     strings.ToLower(strings.TrimSpace(r.Email)),
			Role:      kind,
		})
	}
	return roles
}

// checkUpload enforces the size ceiling and MIME allow-list shared by every upload.
func checkUpload(file dto.FileUpload, maxSize int64, allowed []string) error {
	if file.Content == nil || strings.TrimSpace(file.Filename) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if maxSize > 0 && file.Size > maxSize {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", maxSize))
	}
	if len(allowed) == 0 {
		return nil
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.ContentType, ";")[0]))
	for _, mime := range allowed {
		if strings.EqualFold(mime, contentType) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", file.ContentType))
}
