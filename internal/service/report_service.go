package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/export"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

var reportHeaders = []string{"Tipo", "Codigo", "Nombre", "Sede", "Categoria", "Version", "Estado", "Vencimiento", "Dias", "Alerta"}

// ReportResult is a rendered report ready to stream.
type ReportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService renders compliance reports of the caller's visible documents.
type ReportService struct {
	projects   projectScoper
	documents  documentSummaryLister
	formats    documentSummaryLister
	categories categoryLister
	renderers  map[dto.ReportFormat]datasetRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	soonDays   int
	now        func() time.Time
}

// NewReportService constructs the report service with CSV and PDF renderers.
func NewReportService(projects projectScoper, documents, formats documentSummaryLister, categories categoryLister, validate *validator.Validate, logger *zap.Logger, soonDays int) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if soonDays <= 0 {
		soonDays = compliance.DefaultExpiringSoonDays
	}
	return &ReportService{
		projects:   projects,
		documents:  documents,
		formats:    formats,
		categories: categories,
		renderers: map[dto.ReportFormat]datasetRenderer{
			dto.ReportFormatCSV: export.NewCSVExporter(),
			dto.ReportFormatPDF: export.NewPDFExporter(),
		},
		validator: validate,
		logger:    logger,
		soonDays:  soonDays,
		now:       time.Now,
	}
}

// Compliance renders every visible document and record format with its expiry state.
func (s *ReportService) Compliance(ctx context.Context, session *models.Session, query dto.ReportQuery) (*ReportResult, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Invalid(err, "invalid report query")
	}
	if query.Status != "" && !compliance.ValidStatus(query.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
	}
	format := query.Format
	if format == "" {
		format = dto.ReportFormatCSV
	}

	dataset, err := s.dataset(ctx, session.Identity, query)
	if err != nil {
		return nil, err
	}
	body, err := s.renderers[format].Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	result := &ReportResult{
		Filename: fmt.Sprintf("compliance-%s.%s", dataset.GeneratedAt.Format("20060102"), format),
		Body:     body,
	}
	if format == dto.ReportFormatPDF {
		result.ContentType = "application/pdf"
	} else {
		result.ContentType = "text/csv; charset=utf-8"
	}
	s.logger.Info("compliance report rendered", zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return result, nil
}

func (s *ReportService) dataset(ctx context.Context, identity models.Identity, query dto.ReportQuery) (export.Dataset, error) {
	asOf := s.now()
	data := export.Dataset{
		Title:       "Reporte de cumplimiento",
		GeneratedAt: asOf.UTC(),
		Headers:     reportHeaders,
		Highlight:   map[int]bool{},
	}

	scope, projects, err := s.projects.Scope(ctx, identity)
	if err != nil {
		return data, err
	}
	var projectIDs []string
	switch {
	case query.ProjectID != "":
		if !scope.Contains(query.ProjectID) {
			return data, appErrors.ErrNotFound
		}
		projectIDs = []string{query.ProjectID}
	case scope.Empty():
		return data, nil
	default:
		projectIDs = scope.IDs()
	}

	var docs, formats []models.Document
	var categories []models.DocumentCategory
	g, gctx := errgroup.WithContext(ctx)
	if query.Track == "" || query.Track == models.TrackDocument {
		g.Go(func() error {
			var err error
			docs, err = s.documents.ListSummaries(gctx, projectIDs)
			return repoError(err, "documents.list")
		})
	}
	if query.Track == "" || query.Track == models.TrackRecord {
		g.Go(func() error {
			var err error
			formats, err = s.formats.ListSummaries(gctx, projectIDs)
			return repoError(err, "recordFormats.list")
		})
	}
	g.Go(func() error {
		var err error
		categories, err = s.categories.List(gctx, models.CategoryFilter{})
		return repoError(err, "categories.list")
	})
	if err := g.Wait(); err != nil {
		return data, err
	}

	sedes := make(map[string]string, len(projects))
	for _, p := range projects {
		sedes[p.ID] = p.Sede
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	items := append(docs, formats...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ProjectID != items[j].ProjectID {
			return sedes[items[i].ProjectID] < sedes[items[j].ProjectID]
		}
		return items[i].Codigo < items[j].Codigo
	})
	for i := range items {
		item := &items[i]
		if !scope.Contains(item.ProjectID) || (query.Status != "" && item.Status != query.Status) {
			continue
		}
		row := map[string]string{
			"Tipo":      trackLabel(item.Track),
			"Codigo":    item.Codigo,
			"Nombre":    item.Nombre,
			"Sede":      sedes[item.ProjectID],
			"Categoria": categoryNames[item.CategoryID],
			"Version":   item.Version,
			"Estado":    string(item.Status),
		}
		if st := compliance.StatusOf(item, asOf, s.soonDays); st != nil {
			row["Vencimiento"] = item.FechaVencimiento.Format("2006-01-02")
			row["Dias"] = strconv.Itoa(st.ExpiresInDays)
			switch {
			case st.IsExpired:
				row["Alerta"] = "vencido"
			case st.ExpiringSoon:
				row["Alerta"] = "por vencer"
			}
			if st.IsExpired || st.ExpiringSoon {
				data.Highlight[len(data.Rows)] = true
			}
		}
		data.Rows = append(data.Rows, row)
	}
	data.Subtitle = fmt.Sprintf("%d registros al %s", len(data.Rows), asOf.Format("2006-01-02"))
	return data, nil
}

func trackLabel(track models.Track) string {
	if track == models.TrackRecord {
		return "Formato de registro"
	}
	return "Documento"
}
