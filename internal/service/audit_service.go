package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/pkg/database"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditReader interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AuditService exposes the audit trail to admins.
type AuditService struct {
	repo auditReader
}

// NewAuditService constructs the service.
func NewAuditService(repo auditReader) *AuditService {
	return &AuditService{repo: repo}
}

// List returns recent audit rows for a resource type, optionally one resource.
func (s *AuditService) List(ctx context.Context, session *models.Session, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource is required")
	}
	logs, err := s.repo.ListByResource(ctx, resource, strings.TrimSpace(resourceID), limit)
	if err != nil {
		return nil, appErrors.Backend(err, "auditLogs.list")
	}
	return logs, nil
}

// recordAudit writes an audit row; failures are logged and swallowed.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, session *models.Session, action, resource, resourceID string, values interface{}) {
	if audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  "system",
		UserAgent:  "compliance-docs-api",
	}
	if session != nil {
		userID := session.Identity.UserID
		log.UserID = &userID
	}
	if values != nil {
		if payload, err := json.Marshal(values); err == nil {
			log.NewValues = payload
		}
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

func requireSession(session *models.Session) error {
	if session == nil || session.Identity.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	return nil
}

func requireAdmin(session *models.Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.Identity.IsAdmin() {
		return appErrors.ErrForbidden
	}
	return nil
}

// repoError maps a repository failure: missing rows become NOT_FOUND, typed
// errors pass through and everything else is a backend failure for operation.
func repoError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Backend(err, operation)
}

func paginate(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

// conflictOr maps unique violations to CONFLICT with message, otherwise defers to repoError.
func conflictOr(err error, message, operation string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, message)
	}
	return repoError(err, operation)
}
