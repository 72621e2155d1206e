package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

func newDashboardFixture(t *testing.T) (*DashboardService, *mockCacheRepo, *mockDocumentStore) {
	t.Helper()
	soon := time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC)
	past := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	approved := dueOn(seededDocument(models.StatusApproved), soon)
	draft := seededDocument(models.StatusDraft)
	draft.ID, draft.ProjectID = "d2", "p2"
	expired := dueOn(seededDocument(models.StatusExpired), past)
	expired.ID, expired.ProjectID = "d3", "p3"
	docs := newMockDocumentStore(models.TrackDocument, approved, draft, expired)

	format := seededDocument(models.StatusPendingReview)
	format.ID, format.CategoryID = "f1", "cat-rec"
	formats := newMockDocumentStore(models.TrackRecord, format)

	entries := &mockEntryRepo{entries: map[string]*models.RecordEntry{
		"e1": {ID: "e1", FormatID: "f1", Status: models.EntryPending},
		"e2": {ID: "e2", FormatID: "f1", Status: models.EntryPending},
		"e3": {ID: "e3", FormatID: "f1", Status: models.EntryApproved},
	}}

	cacheRepo := &mockCacheRepo{}
	svc := NewDashboardService(DashboardServiceParams{
		Projects:   testProjects(),
		Documents:  docs,
		Formats:    formats,
		Categories: testCategories(),
		Entries:    entries,
		Cache:      NewCacheService(cacheRepo, nil, time.Minute, nil, true),
	})
	svc.now = func() time.Time { return fixedNow }
	return svc, cacheRepo, docs
}

func TestDashboardSummaryForContactUser(t *testing.T) {
	svc, _, _ := newDashboardFixture(t)

	resp, cached, err := svc.Summary(context.Background(), companyUserSession("u1", "c1", "", false))
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, resp.Projects, 1)

	row := resp.Projects[0]
	assert.Equal(t, "p1", row.ProjectID)
	assert.Equal(t, 1, row.Documents.Approved)
	assert.Equal(t, 1, row.RecordFormats.PendingReview)
	assert.Equal(t, 2, row.PendingEntries)
	assert.Equal(t, 1, row.ExpiringSoon)
	assert.Equal(t, 0, row.MissingCount)
	assert.Equal(t, 2, resp.Totals.Total)
	require.Len(t, resp.Expiring, 1)
	assert.Equal(t, 10, resp.Expiring[0].ExpiresInDays)
}

func TestDashboardSummaryForAdminListsGaps(t *testing.T) {
	svc, _, _ := newDashboardFixture(t)

	resp, _, err := svc.Summary(context.Background(), adminSession())
	require.NoError(t, err)
	assert.Len(t, resp.Projects, 4)
	assert.Equal(t, 4, resp.Totals.Total)
	require.Len(t, resp.Expiring, 2)
	assert.True(t, resp.Expiring[0].IsExpired)
	assert.Equal(t, "d3", resp.Expiring[0].ID)

	missing := map[string]int{}
	for _, m := range resp.MissingRequired {
		missing[m.ProjectID]++
	}
	assert.Equal(t, map[string]int{"p2": 1, "p3": 1, "p4": 2}, missing)
}

func TestDashboardSummaryIsCachedPerUser(t *testing.T) {
	svc, cacheRepo, docs := newDashboardFixture(t)
	session := adminSession()

	first, cached, err := svc.Summary(context.Background(), session)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Contains(t, cacheRepo.store, "dashboard:admin-1")

	docs.listErr = errBackendForTest
	second, cached, err := svc.Summary(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.Totals, second.Totals)

	_, _, err = svc.Summary(context.Background(), companyUserSession("u1", "c1", "", false))
	assert.True(t, errors.Is(err, appErrors.ErrBackendUnavailable))
}
