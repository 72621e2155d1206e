package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
)

type documentSummaryLister interface {
	ListSummaries(ctx context.Context, projectIDs []string) ([]models.Document, error)
}

type categoryLister interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]models.DocumentCategory, error)
}

type pendingEntryCounter interface {
	CountPendingByFormat(ctx context.Context, formatIDs []string) (map[string]int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	ExpiringSoonDays int
}

// DashboardService aggregates compliance state for the analytics screen.
type DashboardService struct {
	projects   projectScoper
	documents  documentSummaryLister
	formats    documentSummaryLister
	categories categoryLister
	entries    pendingEntryCounter
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Projects   projectScoper
	Documents  documentSummaryLister
	Formats    documentSummaryLister
	Categories categoryLister
	Entries    pendingEntryCounter
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ExpiringSoonDays <= 0 {
		cfg.ExpiringSoonDays = compliance.DefaultExpiringSoonDays
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		projects:   params.Projects,
		documents:  params.Documents,
		formats:    params.Formats,
		categories: params.Categories,
		entries:    params.Entries,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Summary returns the caller's dashboard and whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context, session *models.Session) (*dto.DashboardResponse, bool, error) {
	if err := requireSession(session); err != nil {
		return nil, false, err
	}
	var cached dto.DashboardResponse
	value, hit, err := s.cache.Remember(ctx, DashboardKey(session.Identity.UserID), &cached, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, session.Identity)
	})
	if err != nil {
		return nil, false, err
	}
	return value.(*dto.DashboardResponse), hit, nil
}

func (s *DashboardService) build(ctx context.Context, identity models.Identity) (*dto.DashboardResponse, error) {
	asOf := s.now()
	resp := &dto.DashboardResponse{
		GeneratedAt:     asOf.UTC(),
		Projects:        []dto.ProjectComplianceSummary{},
		MissingRequired: []dto.MissingCategory{},
		Expiring:        []dto.ExpiringItem{},
	}

	scope, projects, err := s.projects.Scope(ctx, identity)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return resp, nil
	}
	projectIDs := scope.IDs()

	var docs, formats []models.Document
	var required []models.DocumentCategory
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.documents.ListSummaries(gctx, projectIDs)
		return repoError(err, "documents.list")
	})
	g.Go(func() error {
		var err error
		formats, err = s.formats.ListSummaries(gctx, projectIDs)
		return repoError(err, "recordFormats.list")
	})
	g.Go(func() error {
		active, isRequired := true, true
		var err error
		required, err = s.categories.List(gctx, models.CategoryFilter{IsActive: &active, Required: &isRequired})
		return repoError(err, "categories.list")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	formatIDs := make([]string, 0, len(formats))
	for _, f := range formats {
		formatIDs = append(formatIDs, f.ID)
	}
	pending, err := s.entries.CountPendingByFormat(ctx, formatIDs)
	if err != nil {
		return nil, repoError(err, "recordEntries.count")
	}

	rows := make(map[string]*dto.ProjectComplianceSummary, len(projects))
	order := make([]string, 0, len(projects))
	filed := make(map[string]map[string]struct{}, len(projects))
	for _, p := range projects {
		if !scope.Contains(p.ID) {
			continue
		}
		rows[p.ID] = &dto.ProjectComplianceSummary{ProjectID: p.ID, Sede: p.Sede, CompanyID: p.CompanyID}
		filed[p.ID] = map[string]struct{}{}
		order = append(order, p.ID)
	}

	tally := func(items []models.Document, pick func(*dto.ProjectComplianceSummary) *dto.StatusCounts) {
		for i := range items {
			item := &items[i]
			row, ok := rows[item.ProjectID]
			if !ok {
				continue
			}
			addStatus(pick(row), item.Status)
			addStatus(&resp.Totals, item.Status)
			filed[item.ProjectID][item.CategoryID] = struct{}{}
			if item.Track == models.TrackRecord {
				row.PendingEntries += pending[item.ID]
			}
			st := compliance.StatusOf(item, asOf, s.cfg.ExpiringSoonDays)
			if st == nil || !(st.IsExpired || st.ExpiringSoon) {
				continue
			}
			if st.IsExpired {
				row.Expired++
			} else {
				row.ExpiringSoon++
			}
			resp.Expiring = append(resp.Expiring, dto.ExpiringItem{
				ID:               item.ID,
				Track:            string(item.Track),
				ProjectID:        item.ProjectID,
				Nombre:           item.Nombre,
				Codigo:           item.Codigo,
				FechaVencimiento: *item.FechaVencimiento,
				ExpiresInDays:    st.ExpiresInDays,
				IsExpired:        st.IsExpired,
			})
		}
	}
	tally(docs, func(r *dto.ProjectComplianceSummary) *dto.StatusCounts { return &r.Documents })
	tally(formats, func(r *dto.ProjectComplianceSummary) *dto.StatusCounts { return &r.RecordFormats })

	for _, id := range order {
		row := rows[id]
		for _, c := range required {
			if _, ok := filed[id][c.ID]; ok {
				continue
			}
			row.MissingCount++
			resp.MissingRequired = append(resp.MissingRequired, dto.MissingCategory{
				ProjectID:    id,
				CategoryID:   c.ID,
				CategoryName: c.Name,
				Type:         string(c.Type),
			})
		}
		resp.Projects = append(resp.Projects, *row)
	}

	sort.SliceStable(resp.Expiring, func(i, j int) bool {
		return resp.Expiring[i].ExpiresInDays < resp.Expiring[j].ExpiresInDays
	})
	return resp, nil
}

func addStatus(c *dto.StatusCounts, status models.DocumentStatus) {
	switch status {
	case models.StatusDraft:
		c.Draft++
	case models.StatusPendingReview:
		c.PendingReview++
	case models.StatusApproved:
		c.Approved++
	case models.StatusRejected:
		c.Rejected++
	case models.StatusExpired:
		c.Expired++
	}
	c.Total++
}
