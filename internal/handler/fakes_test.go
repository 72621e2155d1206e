package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/middleware"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	"github.com/noah-isme/compliance-docs-api/pkg/catalog"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func adminCtx() *models.Session {
	return &models.Session{Identity: models.Identity{UserID: "admin-1", Role: models.RoleAdmin}}
}

func userCtx() *models.Session {
	return &models.Session{Identity: models.Identity{UserID: "u1", Role: models.RoleCompanyUser, CompanyID: "c1"}}
}

func newTestContext(req *http.Request, session *models.Session) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	if session != nil {
		c.Set(middleware.ContextSessionKey, session)
	}
	return c, rec
}

type multipartPart struct {
	field, filename, contentType string
	body                         []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, parts ...multipartPart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

type fakeCompanies struct {
	created *dto.CompanyRequest
	err     error
}

func (f *fakeCompanies) List(context.Context, *models.Session, dto.CompanyListQuery) ([]models.Company, error) {
	return []models.Company{{ID: "c1"}}, f.err
}

func (f *fakeCompanies) Get(_ context.Context, _ *models.Session, id string) (*models.Company, error) {
	return &models.Company{ID: id}, f.err
}

func (f *fakeCompanies) Create(_ context.Context, _ *models.Session, req dto.CompanyRequest) (*models.Company, error) {
	f.created = &req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Company{ID: "c-new", RazonSocial: req.RazonSocial, RUC: req.RUC}, nil
}

func (f *fakeCompanies) Update(_ context.Context, _ *models.Session, id string, req dto.CompanyRequest) (*models.Company, error) {
	return &models.Company{ID: id, RazonSocial: req.RazonSocial}, f.err
}

func (f *fakeCompanies) Delete(context.Context, *models.Session, string) error { return f.err }

type fakeUsers struct {
	created *dto.UserRequest
}

func (f *fakeUsers) List(context.Context, *models.Session, dto.UserListQuery) ([]models.User, error) {
	return []models.User{{ID: "u1"}}, nil
}
func (f *fakeUsers) Get(_ context.Context, _ *models.Session, id string) (*models.User, error) {
	return &models.User{ID: id}, nil
}
func (f *fakeUsers) Create(_ context.Context, _ *models.Session, req dto.UserRequest) (*models.User, error) {
	f.created = &req
	return &models.User{ID: req.ID, Email: req.Email, Role: req.Role}, nil
}
func (f *fakeUsers) Update(_ context.Context, _ *models.Session, id string, req dto.UserRequest) (*models.User, error) {
	return &models.User{ID: id, Role: req.Role}, nil
}
func (f *fakeUsers) Deactivate(context.Context, *models.Session, string) error { return nil }

type fakeProjects struct{}

func (fakeProjects) List(context.Context, *models.Session, dto.ProjectListQuery) ([]models.Project, error) {
	return []models.Project{}, nil
}
func (fakeProjects) Get(_ context.Context, _ *models.Session, id string) (*models.Project, error) {
	return &models.Project{ID: id}, nil
}
func (fakeProjects) Create(context.Context, *models.Session, dto.ProjectRequest) (*models.Project, error) {
	return &models.Project{ID: "p-new"}, nil
}
func (fakeProjects) Update(_ context.Context, _ *models.Session, id string, _ dto.ProjectRequest) (*models.Project, error) {
	return &models.Project{ID: id}, nil
}
func (fakeProjects) Delete(context.Context, *models.Session, string) error { return nil }

type fakeCategories struct {
	imported *catalog.File
}

func (f *fakeCategories) List(context.Context, *models.Session, dto.CategoryListQuery) ([]models.DocumentCategory, error) {
	return []models.DocumentCategory{}, nil
}
func (f *fakeCategories) Get(_ context.Context, _ *models.Session, id string) (*models.DocumentCategory, error) {
	return &models.DocumentCategory{ID: id}, nil
}
func (f *fakeCategories) Create(context.Context, *models.Session, dto.CategoryRequest) (*models.DocumentCategory, error) {
	return &models.DocumentCategory{ID: "cat-new"}, nil
}
func (f *fakeCategories) Update(_ context.Context, _ *models.Session, id string, _ dto.CategoryRequest) (*models.DocumentCategory, error) {
	return &models.DocumentCategory{ID: id}, nil
}
func (f *fakeCategories) Delete(context.Context, *models.Session, string) error { return nil }
func (f *fakeCategories) Import(_ context.Context, _ *models.Session, file *catalog.File) (*dto.CatalogImportResponse, error) {
	f.imported = file
	return &dto.CatalogImportResponse{Inserted: len(file.Categories)}, nil
}

type fakeDocuments struct {
	createReq   dto.CreateDocumentRequest
	versionReq  dto.AddVersionRequest
	upload      dto.FileUpload
	uploadBody  []byte
	transition  dto.TransitionRequest
	downloadFor [2]string
	err         error
}

func (f *fakeDocuments) capture(file dto.FileUpload) {
	f.upload = file
	f.uploadBody, _ = io.ReadAll(file.Content)
}

func (f *fakeDocuments) List(context.Context, *models.Session, dto.DocumentListQuery) ([]dto.DocumentResponse, *models.Pagination, error) {
	return []dto.DocumentResponse{}, &models.Pagination{Page: 1, PageSize: 20}, f.err
}
func (f *fakeDocuments) Get(_ context.Context, _ *models.Session, id string) (*dto.DocumentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DocumentResponse{Document: models.Document{ID: id}}, nil
}
func (f *fakeDocuments) Create(_ context.Context, _ *models.Session, req dto.CreateDocumentRequest, file dto.FileUpload) (*dto.DocumentResponse, error) {
	f.createReq = req
	f.capture(file)
	return &dto.DocumentResponse{Document: models.Document{ID: "d-new", Nombre: req.Nombre}}, f.err
}
func (f *fakeDocuments) AddVersion(_ context.Context, _ *models.Session, id string, req dto.AddVersionRequest, file dto.FileUpload) (*dto.DocumentResponse, error) {
	f.versionReq = req
	f.capture(file)
	return &dto.DocumentResponse{Document: models.Document{ID: id}}, f.err
}
func (f *fakeDocuments) ActivateVersion(_ context.Context, _ *models.Session, id, _ string) (*dto.DocumentResponse, error) {
	return &dto.DocumentResponse{Document: models.Document{ID: id}}, f.err
}
func (f *fakeDocuments) DeactivateVersions(_ context.Context, _ *models.Session, id string) (*dto.DocumentResponse, error) {
	return &dto.DocumentResponse{Document: models.Document{ID: id}}, f.err
}
func (f *fakeDocuments) Transition(_ context.Context, _ *models.Session, id string, req dto.TransitionRequest) (*dto.DocumentResponse, error) {
	f.transition = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DocumentResponse{Document: models.Document{ID: id, Status: req.Status}}, nil
}
func (f *fakeDocuments) DownloadURL(_ context.Context, _ *models.Session, id, versionID string) (*dto.DownloadResponse, error) {
	f.downloadFor = [2]string{id, versionID}
	return &dto.DownloadResponse{URL: "https://files.test/" + id}, f.err
}
func (f *fakeDocuments) Delete(context.Context, *models.Session, string) error { return f.err }

type fakeEntries struct {
	formatID string
	req      dto.CreateRecordEntryRequest
	decision dto.EntryDecisionRequest
}

func (f *fakeEntries) List(context.Context, *models.Session, dto.RecordEntryListQuery) ([]models.RecordEntry, *models.Pagination, error) {
	return []models.RecordEntry{}, &models.Pagination{Page: 1}, nil
}
func (f *fakeEntries) Get(_ context.Context, _ *models.Session, id string) (*models.RecordEntry, error) {
	return &models.RecordEntry{ID: id}, nil
}
func (f *fakeEntries) Create(_ context.Context, _ *models.Session, formatID string, req dto.CreateRecordEntryRequest, _ dto.FileUpload) (*models.RecordEntry, error) {
	f.formatID = formatID
	f.req = req
	return &models.RecordEntry{ID: "e-new", FormatID: formatID}, nil
}
func (f *fakeEntries) Decide(_ context.Context, _ *models.Session, id string, req dto.EntryDecisionRequest) (*models.RecordEntry, error) {
	f.decision = req
	return &models.RecordEntry{ID: id, Status: req.Decision}, nil
}
func (f *fakeEntries) DownloadURL(_ context.Context, _ *models.Session, id string) (*dto.DownloadResponse, error) {
	return &dto.DownloadResponse{URL: "https://files.test/" + id}, nil
}
func (f *fakeEntries) Delete(context.Context, *models.Session, string) error { return nil }

type fakeDashboard struct {
	resp *dto.DashboardResponse
	hit  bool
	err  error
}

func (f *fakeDashboard) Summary(context.Context, *models.Session) (*dto.DashboardResponse, bool, error) {
	return f.resp, f.hit, f.err
}

type fakeReports struct {
	query dto.ReportQuery
}

func (f *fakeReports) Compliance(_ context.Context, _ *models.Session, query dto.ReportQuery) (*service.ReportResult, error) {
	f.query = query
	return &service.ReportResult{Filename: "compliance-20250115.csv", ContentType: "text/csv", Body: []byte("Tipo,Codigo\n")}, nil
}

type fakeExpiration struct{ calls int }

func (f *fakeExpiration) Trigger(context.Context, *models.Session) (*dto.ReconcileResponse, error) {
	f.calls++
	return &dto.ReconcileResponse{Checked: 2, Expired: 1}, nil
}

type fakeAudit struct {
	resource, resourceID string
	limit                int
}

func (f *fakeAudit) List(_ context.Context, _ *models.Session, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	f.resource, f.resourceID, f.limit = resource, resourceID, limit
	return []models.AuditLog{}, nil
}
