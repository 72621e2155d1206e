package service

import (
	"context"
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

type recordEntryStore interface {
	List(ctx context.Context, filter models.RecordEntryFilter) ([]models.RecordEntry, int, error)
	GetByID(ctx context.Context, id string) (*models.RecordEntry, error)
	Create(ctx context.Context, entry *models.RecordEntry) error
	Decide(ctx context.Context, id string, fn func(*models.RecordEntry) error) (*models.RecordEntry, error)
	Delete(ctx context.Context, id string) (*string, error)
}

type recordFormatReader interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListSummaries(ctx context.Context, projectIDs []string) ([]models.Document, error)
}

// RecordEntryService handles dated submissions against record formats.
type RecordEntryService struct {
	repo      recordEntryStore
	formats   recordFormatReader
	projects  projectScoper
	files     storage.FileStore
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	now       func() time.Time
}

// NewRecordEntryService constructs the service. cfg shares the upload limits of the format track.
func NewRecordEntryService(repo recordEntryStore, formats recordFormatReader, projects projectScoper, files storage.FileStore, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) *RecordEntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = 30 * time.Minute
	}
	return &RecordEntryService{
		repo:      repo,
		formats:   formats,
		projects:  projects,
		files:     files,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// List returns entries of visible formats, most recent first.
func (s *RecordEntryService) List(ctx context.Context, session *models.Session, query dto.RecordEntryListQuery) ([]models.RecordEntry, *models.Pagination, error) {
	if err := requireSession(session); err != nil {
		return nil, nil, err
	}
	switch query.Status {
	case "", models.EntryPending, models.EntryApproved, models.EntryRejected:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	filter := models.RecordEntryFilter{Status: query.Status, Page: query.Page, PageSize: query.PageSize}

	if query.FormatID != "" {
		if _, err := s.loadFormat(ctx, session.Identity, query.FormatID); err != nil {
			return nil, nil, err
		}
		filter.FormatIDs = []string{query.FormatID}
	} else {
		scope, _, err := s.projects.Scope(ctx, session.Identity)
		if err != nil {
			return nil, nil, err
		}
		if !scope.All() {
			if scope.Empty() {
				return []models.RecordEntry{}, paginate(query.Page, query.PageSize, 0), nil
			}
			formats, err := s.formats.ListSummaries(ctx, scope.IDs())
			if err != nil {
				return nil, nil, repoError(err, "recordFormats.list")
			}
			filter.FormatIDs = make([]string, 0, len(formats))
			for _, f := range formats {
				if scope.Contains(f.ProjectID) {
					filter.FormatIDs = append(filter.FormatIDs, f.ID)
				}
			}
			if len(filter.FormatIDs) == 0 {
				return []models.RecordEntry{}, paginate(query.Page, query.PageSize, 0), nil
			}
		}
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, repoError(err, "recordEntries.list")
	}
	if entries == nil {
		entries = []models.RecordEntry{}
	}
	return entries, paginate(query.Page, query.PageSize, total), nil
}

// Get returns one entry when its format is visible.
func (s *RecordEntryService) Get(ctx context.Context, session *models.Session, id string) (*models.RecordEntry, error) {
	entry, _, err := s.load(ctx, session, id)
	return entry, err
}

// Create stores the file and records a pending entry under formatID.
func (s *RecordEntryService) Create(ctx context.Context, session *models.Session, formatID string, req dto.CreateRecordEntryRequest, file dto.FileUpload) (*models.RecordEntry, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	format, err := s.loadFormat(ctx, session.Identity, formatID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid record entry payload")
	}
	if err := checkUpload(file, s.cfg.MaxFileSize, s.cfg.AllowedMIMEs); err != nil {
		return nil, err
	}

	entry := &models.RecordEntry{
		ID:               uuid.NewString(),
		FormatID:         format.ID,
		Nombre:           strings.TrimSpace(req.Nombre),
		FechaRealizacion: req.FechaRealizacion,
		FileName:         storage.SanitizeFilename(file.Filename),
		FileSize:         file.Size,
		MimeType:         file.ContentType,
		UploadedBy:       session.Identity.UserID,
		UploadedAt:       s.now().UTC(),
		Status:           models.EntryPending,
	}
	key := storage.ObjectKey("record-entries", format.ID, entry.ID, file.Filename)
	if err := s.files.Put(ctx, key, file.Content, file.Size, file.ContentType); err != nil {
		return nil, repoError(err, "storage.put")
	}
	entry.FilePath = &key

	if err := s.repo.Create(ctx, entry); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to discard orphaned file", zap.String("path", key), zap.Error(delErr))
		}
		return nil, repoError(err, "recordEntries.create")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionEntryUpload, "record_entry", entry.ID,
		map[string]string{"formatId": format.ID, "fileName": entry.FileName})
	s.cache.InvalidateDashboards(ctx)
	return entry, nil
}

// Decide approves or rejects a pending entry. Only the format's approvers or an admin may decide.
func (s *RecordEntryService) Decide(ctx context.Context, session *models.Session, id string, req dto.EntryDecisionRequest) (*models.RecordEntry, error) {
	_, format, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid decision payload")
	}
	entry, err := s.repo.Decide(ctx, id, func(entry *models.RecordEntry) error {
		if err := compliance.DecideEntry(entry, format, req.Decision, session.Identity, s.now()); err != nil {
			return err
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			entry.Notes = &notes
		}
		return nil
	})
	if err != nil {
		return nil, repoError(err, "recordEntries.decide")
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionEntryDecision, "record_entry", id, map[string]string{"decision": string(entry.Status)})
	s.cache.InvalidateDashboards(ctx)
	return entry, nil
}

// DownloadURL returns a time-limited link to the entry's file.
func (s *RecordEntryService) DownloadURL(ctx context.Context, session *models.Session, id string) (*dto.DownloadResponse, error) {
	entry, _, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if entry.FilePath == nil || *entry.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "entry has no stored file")
	}
	url, expiresAt, err := s.files.URL(ctx, *entry.FilePath, s.cfg.URLTTL)
	if err != nil {
		return nil, repoError(err, "storage.url")
	}
	return &dto.DownloadResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// Delete removes an entry and its file. Admin only.
func (s *RecordEntryService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	path, err := s.repo.Delete(ctx, id)
	if err != nil {
		return repoError(err, "recordEntries.delete")
	}
	if path != nil {
		if err := s.files.Delete(ctx, *path); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("path", *path), zap.Error(err))
		}
	}
	recordAudit(ctx, s.audit, s.logger, session, models.AuditActionEntryDelete, "record_entry", id, nil)
	s.cache.InvalidateDashboards(ctx)
	return nil
}

func (s *RecordEntryService) load(ctx context.Context, session *models.Session, id string) (*models.RecordEntry, *models.Document, error) {
	if err := requireSession(session); err != nil {
		return nil, nil, err
	}
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, repoError(err, "recordEntries.get")
	}
	format, err := s.loadFormat(ctx, session.Identity, entry.FormatID)
	if err != nil {
		return nil, nil, err
	}
	return entry, format, nil
}

func (s *RecordEntryService) loadFormat(ctx context.Context, identity models.Identity, formatID string) (*models.Document, error) {
	format, err := s.formats.GetByID(ctx, formatID)
	if err != nil {
		return nil, repoError(err, "recordFormats.get")
	}
	if _, err := s.projects.EnsureVisible(ctx, identity, format.ProjectID); err != nil {
		return nil, err
	}
	return format, nil
}
