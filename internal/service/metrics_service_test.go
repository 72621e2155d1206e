package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/documents", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/documents", 200, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordTransition(models.TrackDocument, models.StatusApproved)
	m.RecordTransition(models.TrackRecord, models.StatusApproved)
	m.RecordVersionUpload(models.TrackRecord)
	m.RecordExpirations(models.TrackDocument, 3)
	m.RecordExpirations(models.TrackDocument, 0)
	m.RecordBackendError("documents.list")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.Transitions["approved"])
	assert.Equal(t, uint64(1), snap.VersionsUploaded["record"])
	assert.Equal(t, uint64(3), snap.ExpirationsReconciled["document"])
	assert.Equal(t, uint64(1), snap.BackendErrors["documents.list"])
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordVersionUpload(models.TrackDocument)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `compliance_versions_uploaded_total{track="document"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordTransition(models.TrackDocument, models.StatusExpired)
	m.RecordBackendError("x")
	assert.NotNil(t, m.Snapshot().Transitions)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
