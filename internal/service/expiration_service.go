package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/jobs"
)

// JobTypeExpirationReconcile identifies reconciliation jobs on the queue.
const JobTypeExpirationReconcile = "expiration.reconcile"

var errAlreadyCurrent = errors.New("parent no longer due for expiry")

type expirableStore interface {
	Track() models.Track
	ListExpirable(ctx context.Context, filter models.ExpirableFilter) ([]string, error)
	Mutate(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error)
}

// ExpirationService flips approved parents past their due date to expired.
type ExpirationService struct {
	stores  []expirableStore
	audit   auditLogger
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewExpirationService reconciles every given track.
func NewExpirationService(audit auditLogger, cache *CacheService, metrics *MetricsService, logger *zap.Logger, stores ...expirableStore) *ExpirationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirationService{stores: stores, audit: audit, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Trigger runs a reconciliation pass on behalf of an admin.
func (s *ExpirationService) Trigger(ctx context.Context, session *models.Session) (*dto.ReconcileResponse, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	return s.Reconcile(ctx)
}

// HandleJob is the queue handler. A pass with failures is retried.
func (s *ExpirationService) HandleJob(ctx context.Context, job jobs.Job) error {
	result, err := s.Reconcile(ctx)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d parents failed to expire", len(result.Failed))
	}
	return nil
}

// Reconcile expires every approved parent whose due date is before today.
// Each parent is rechecked under its row lock so concurrent edits win.
func (s *ExpirationService) Reconcile(ctx context.Context) (*dto.ReconcileResponse, error) {
	asOf := s.now()
	result := &dto.ReconcileResponse{}
	for _, store := range s.stores {
		track := store.Track()
		ids, err := store.ListExpirable(ctx, models.ExpirableFilter{Status: models.StatusApproved, Before: asOf})
		if err != nil {
			s.metrics.RecordBackendError("expiration.list")
			return result, appErrors.Backend(err, "expiration.list")
		}
		result.Checked += len(ids)

		expired := 0
		for _, id := range ids {
			_, err := store.Mutate(ctx, id, func(doc *models.Document) error {
				if !compliance.NeedsExpiry(doc, asOf) {
					return errAlreadyCurrent
				}
				return compliance.Expire(doc, asOf)
			})
			switch {
			case err == nil:
				expired++
				recordAudit(ctx, s.audit, s.logger, nil, models.AuditActionExpire, string(track), id, map[string]string{"status": string(models.StatusExpired)})
			case errors.Is(err, errAlreadyCurrent):
			default:
				s.logger.Warn("failed to expire parent", zap.String("track", string(track)), zap.String("id", id), zap.Error(err))
				result.Failed = append(result.Failed, string(track)+":"+id)
			}
		}
		if expired > 0 {
			s.metrics.RecordExpirations(track, expired)
			s.metrics.RecordTransition(track, models.StatusExpired)
		}
		result.Expired += expired
	}
	if result.Expired > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	s.logger.Info("expiration reconciliation finished",
		zap.Int("checked", result.Checked), zap.Int("expired", result.Expired), zap.Int("failed", len(result.Failed)))
	return result, nil
}
