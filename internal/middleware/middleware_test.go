package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	sessions map[string]*models.Session
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*models.Session, error) {
	if session, ok := s.sessions[token]; ok {
		return session, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func testAuthenticator() stubAuthenticator {
	return stubAuthenticator{sessions: map[string]*models.Session{
		"admin-token": {Identity: models.Identity{UserID: "admin-1", Role: models.RoleAdmin}},
		"user-token":  {Identity: models.Identity{UserID: "u1", Role: models.RoleCompanyUser, CompanyID: "c1"}},
	}}
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testAuthenticator()))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, SessionFromContext(c).Identity.UserID)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer user-token", wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "lowercase scheme", header: "bearer admin-token", wantStatus: http.StatusOK, wantBody: "admin-1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	router := gin.New()
	router.Use(Auth(testAuthenticator()), RequireAdmin())
	router.POST("/admin", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for token, want := range map[string]int{"admin-token": http.StatusNoContent, "user-token": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, token)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin", nil)
	RequireAdmin()(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestMetricsMiddlewareCountsBackendErrors(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/documents", func(c *gin.Context) {
		response.Error(c, appErrors.Backend(assert.AnError, "documents.list"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.RequestsTotal)
	assert.Equal(t, uint64(1), snap.BackendErrors["documents.list"])
}

func TestAuditMiddlewareRecordsSuccessOnly(t *testing.T) {
	audit := &recordingAudit{}
	router := gin.New()
	router.Use(Auth(testAuthenticator()))
	router.GET("/documents/:id/download", Audit(audit, models.AuditActionFileDownload, "document"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, id := range []string{"d1", "missing"} {
		req := httptest.NewRequest(http.MethodGet, "/documents/"+id+"/download", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, audit.logs, 1)
	log := audit.logs[0]
	assert.Equal(t, models.AuditActionFileDownload, log.Action)
	assert.Equal(t, "d1", *log.ResourceID)
	assert.Equal(t, "u1", *log.UserID)
	assert.True(t, strings.Contains(string(log.NewValues), `"status":200`))
}

func TestTracingMiddlewareRecordsServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	router := gin.New()
	router.Use(Tracing("compliance-docs-api"))
	router.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/projects/p1", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /projects/:id", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestResponseMeta(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/dashboard", func(c *gin.Context) {
		SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, gin.H{}, nil, ExtractMeta(c))
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)
}
