package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/storage"
)

func TestCompanyHandlerCreate(t *testing.T) {
	svc := &fakeCompanies{}
	handler := NewCompanyHandler(svc)

	c, rec := newTestContext(httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{"razonSocial":"Minera Sur","ruc":"20123456789"}`)), adminCtx())
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "20123456789", svc.created.RUC)

	c, rec = newTestContext(httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{`)), adminCtx())
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestUserHandlerCreateAndMe(t *testing.T) {
	svc := &fakeUsers{}
	handler := NewUserHandler(svc)

	body := `{"id":"6f1c2f8e-3a4b-4c5d-8e9f-0a1b2c3d4e5f","name":"Carla","email":"carla@sur.pe","role":"company_user","companyId":"c1"}`
	c, rec := newTestContext(httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)), adminCtx())
	c.Request.Header.Set("Content-Type", "application/json")
	handler.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created.CompanyID)
	assert.Equal(t, "c1", *svc.created.CompanyID)

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/me", nil), userCtx())
	handler.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var identity models.Identity
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &identity))
	assert.Equal(t, "c1", identity.CompanyID)
}

func TestHandlersRequireSession(t *testing.T) {
	handler := NewCompanyHandler(&fakeCompanies{})
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/companies", nil), nil)
	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServiceErrorsKeepTheirStatus(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"not found":  {appErrors.ErrNotFound, http.StatusNotFound},
		"transition": {appErrors.Clone(appErrors.ErrInvalidTransition, "draft -> approved"), http.StatusConflict},
		"backend":    {appErrors.Backend(errors.New("dial tcp"), "documents.get"), http.StatusBadGateway},
	}
	for name, tc := range cases {
		handler := NewDocumentHandler(&fakeDocuments{err: tc.err})
		c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/documents/d1", nil), userCtx())
		c.Params = gin.Params{{Key: "id", Value: "d1"}}
		handler.Get(c)
		assert.Equal(t, tc.want, rec.Code, name)
	}

	handler := NewDocumentHandler(&fakeDocuments{err: appErrors.Backend(errors.New("dial tcp"), "documents.get")})
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/documents/d1", nil), userCtx())
	handler.Get(c)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "BACKEND_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "documents.get", env.Error.Message)
}

func TestDocumentHandlerCreateMultipart(t *testing.T) {
	svc := &fakeDocuments{}
	handler := NewDocumentHandler(svc)
	metadata := `{"nombre":"Politica SST","categoryId":"cat-doc","projectId":"p1","codigo":"POL-01","versionNumber":"1.0",` +
		`"fechaVencimiento":"2025-12-31T00:00:00Z","approvers":[{"nombres":"Rosa","email":"rosa@example.com"}]}`
	req := multipartRequest(t, http.MethodPost, "/documents", map[string]string{"metadata": metadata},
		multipartPart{field: "file", filename: "politica.pdf", contentType: "application/pdf", body: []byte("%PDF-1.4")})

	c, rec := newTestContext(req, userCtx())
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "POL-01", svc.createReq.Codigo)
	require.NotNil(t, svc.createReq.FechaVencimiento)
	assert.Equal(t, 2025, svc.createReq.FechaVencimiento.Year())
	assert.Equal(t, "rosa@example.com", svc.createReq.Approvers[0].Email)
	assert.Equal(t, "politica.pdf", svc.upload.Filename)
	assert.Equal(t, "application/pdf", svc.upload.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), svc.uploadBody)
}

func TestDocumentHandlerCreateRejectsMissingParts(t *testing.T) {
	handler := NewDocumentHandler(&fakeDocuments{})

	noMetadata := multipartRequest(t, http.MethodPost, "/documents", nil,
		multipartPart{field: "file", filename: "a.pdf", contentType: "application/pdf", body: []byte("x")})
	c, rec := newTestContext(noMetadata, userCtx())
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noFile := multipartRequest(t, http.MethodPost, "/documents", map[string]string{"metadata": `{"nombre":"x"}`})
	c, rec = newTestContext(noFile, userCtx())
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerAddVersionInfersContentType(t *testing.T) {
	svc := &fakeDocuments{}
	handler := NewDocumentHandler(svc)
	req := multipartRequest(t, http.MethodPost, "/documents/d1/versions",
		map[string]string{"versionNumber": "2.0", "changes": "new annex", "activate": "true"},
		multipartPart{field: "file", filename: "anexo.pdf", contentType: "application/octet-stream", body: []byte("%PDF")})

	c, rec := newTestContext(req, userCtx())
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	handler.AddVersion(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2.0", svc.versionReq.VersionNumber)
	assert.True(t, svc.versionReq.Activate)
	require.NotNil(t, svc.versionReq.Changes)
	assert.Equal(t, "new annex", *svc.versionReq.Changes)
	assert.Equal(t, "application/pdf", svc.upload.ContentType)
}

func TestDocumentHandlerTransitionAndDownload(t *testing.T) {
	svc := &fakeDocuments{}
	handler := NewDocumentHandler(svc)

	c, rec := newTestContext(httptest.NewRequest(http.MethodPost, "/documents/d1/status", strings.NewReader(`{"status":"approved"}`)), userCtx())
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	handler.Transition(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusApproved, svc.transition.Status)

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/documents/d1/versions/v2/download", nil), userCtx())
	c.Params = gin.Params{{Key: "id", Value: "d1"}, {Key: "versionId", Value: "v2"}}
	handler.Download(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"d1", "v2"}, svc.downloadFor)
}

func TestRecordEntryHandlerCreateParsesDate(t *testing.T) {
	svc := &fakeEntries{}
	handler := NewRecordEntryHandler(svc)
	req := multipartRequest(t, http.MethodPost, "/record-formats/f1/entries",
		map[string]string{"nombre": "Inspeccion enero", "fechaRealizacion": "2025-01-10"},
		multipartPart{field: "file", filename: "inspeccion.pdf", contentType: "application/pdf", body: []byte("%PDF")})

	c, rec := newTestContext(req, userCtx())
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "f1", svc.formatID)
	year, month, day := svc.req.FechaRealizacion.Date()
	assert.Equal(t, []int{2025, 1, 10}, []int{year, int(month), day})

	c, rec = newTestContext(httptest.NewRequest(http.MethodPost, "/record-entries/e1/decision", strings.NewReader(`{"decision":"rejected","notes":"illegible"}`)), userCtx())
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	handler.Decide(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EntryRejected, svc.decision.Decision)
}

func TestCategoryHandlerImportRawYAML(t *testing.T) {
	svc := &fakeCategories{}
	handler := NewCategoryHandler(svc)
	body := "categories:\n  - name: Plan Anual\n    type: document\n    required: true\n"

	c, rec := newTestContext(httptest.NewRequest(http.MethodPost, "/categories/import", strings.NewReader(body)), adminCtx())
	c.Request.Header.Set("Content-Type", "application/x-yaml")
	handler.Import(c)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.imported)
	assert.Equal(t, "Plan Anual", svc.imported.Categories[0].Name)

	c, rec = newTestContext(httptest.NewRequest(http.MethodPost, "/categories/import", strings.NewReader("categories:\n  - name: A\n    type: other\n")), adminCtx())
	handler.Import(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerSummary(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboard{resp: &dto.DashboardResponse{Totals: dto.StatusCounts{Total: 3}}, hit: true})
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), userCtx())
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var payload dto.DashboardResponse
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 3, payload.Totals.Total)

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), userCtx())
	NewDashboardHandler(&fakeDashboard{err: appErrors.ErrForbidden}).Summary(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportHandlerStreamsAttachment(t *testing.T) {
	svc := &fakeReports{}
	handler := NewReportHandler(svc)
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/reports/compliance?format=csv&track=record&projectId=p1", nil), userCtx())
	handler.Compliance(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ReportFormatCSV, svc.query.Format)
	assert.Equal(t, models.TrackRecord, svc.query.Track)
	assert.Equal(t, "p1", svc.query.ProjectID)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "compliance-20250115.csv")
	assert.Equal(t, "Tipo,Codigo\n", rec.Body.String())
}

func TestAdminHandler(t *testing.T) {
	expiration := &fakeExpiration{}
	audit := &fakeAudit{}
	handler := NewAdminHandler(expiration, audit)

	c, rec := newTestContext(httptest.NewRequest(http.MethodPost, "/admin/expirations/reconcile", nil), adminCtx())
	handler.Reconcile(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, expiration.calls)

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/admin/audit-logs?resource=document&resourceId=d1", nil), adminCtx())
	handler.AuditLogs(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "d1", audit.resourceID)
	assert.Equal(t, 50, audit.limit)

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/admin/audit-logs?resource=document&limit=-1", nil), adminCtx())
	handler.AuditLogs(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := NewMetricsHandler(nil, map[string]Pinger{"postgres": PingFunc(func(context.Context) error { return nil })})
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, "/ready", nil), nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := NewMetricsHandler(nil, map[string]Pinger{"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") })})
	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/ready", nil), nil)
	failing.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	failing.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFileHandlerDownload(t *testing.T) {
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	store, err := storage.NewLocalStorage(t.TempDir(), signer, "/files/download")
	require.NoError(t, err)
	key := storage.ObjectKey("documents", "d1", "v1", "politica.pdf")
	require.NoError(t, store.Put(context.Background(), key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	link, _, err := store.URL(context.Background(), key, 0)
	require.NoError(t, err)
	parsed, err := url.Parse(link)
	require.NoError(t, err)

	handler := NewFileHandler(store)
	c, rec := newTestContext(httptest.NewRequest(http.MethodGet, parsed.RequestURI(), nil), nil)
	handler.Download(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	c, rec = newTestContext(httptest.NewRequest(http.MethodGet, "/files/download?token=forged.1.abc", nil), nil)
	handler.Download(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
