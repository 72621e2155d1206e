package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

func newEntryFixture(entries ...models.RecordEntry) (*RecordEntryService, *mockEntryRepo, *mockFileStore) {
	f1 := seededDocument(models.StatusApproved)
	f1.ID, f1.CategoryID = "f1", "cat-rec"
	f3 := seededDocument(models.StatusApproved)
	f3.ID, f3.ProjectID, f3.CategoryID = "f3", "p3", "cat-rec"
	formats := newMockDocumentStore(models.TrackRecord, f1, f3)

	repo := &mockEntryRepo{entries: map[string]*models.RecordEntry{}}
	for i := range entries {
		e := entries[i]
		repo.entries[e.ID] = &e
	}
	files := &mockFileStore{}
	svc := NewRecordEntryService(repo, formats, testProjects(), files, &mockAuditRepo{}, nil, nil, nil,
		DocumentServiceConfig{AllowedMIMEs: []string{"application/pdf"}})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, files
}

func TestRecordEntryCreatePending(t *testing.T) {
	svc, repo, files := newEntryFixture()
	req := dto.CreateRecordEntryRequest{Nombre: "Inspeccion enero", FechaRealizacion: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)}

	entry, err := svc.Create(context.Background(), companyUserSession("u1", "c1", "", false), "f1", req, pdfUpload("insp.pdf"))
	require.NoError(t, err)
	assert.Equal(t, models.EntryPending, entry.Status)
	assert.Equal(t, "u1", entry.UploadedBy)
	require.NotNil(t, entry.FilePath)
	assert.Contains(t, files.objects, *entry.FilePath)
	assert.Contains(t, repo.entries, entry.ID)

	_, err = svc.Create(context.Background(), companyUserSession("u1", "c1", "", false), "f3", req, pdfUpload("insp.pdf"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Create(context.Background(), adminSession(), "f1", dto.CreateRecordEntryRequest{}, pdfUpload("insp.pdf"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRecordEntryDecideRequiresApprover(t *testing.T) {
	svc, _, _ := newEntryFixture(models.RecordEntry{ID: "e1", FormatID: "f1", Status: models.EntryPending})
	ctx := context.Background()

	_, err := svc.Decide(ctx, companyUserSession("u1", "c1", "ana@example.com", false), "e1", dto.EntryDecisionRequest{Decision: models.EntryApproved})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Decide(ctx, adminSession(), "e1", dto.EntryDecisionRequest{Decision: models.EntryPending})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	entry, err := svc.Decide(ctx, companyUserSession("u1", "c1", "rosa@example.com", false), "e1",
		dto.EntryDecisionRequest{Decision: models.EntryApproved, Notes: " conforme "})
	require.NoError(t, err)
	assert.Equal(t, models.EntryApproved, entry.Status)
	require.NotNil(t, entry.ApprovedBy)
	assert.Equal(t, "u1", *entry.ApprovedBy)
	assert.Equal(t, "conforme", *entry.Notes)

	_, err = svc.Decide(ctx, adminSession(), "e1", dto.EntryDecisionRequest{Decision: models.EntryRejected})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestRecordEntryListScopesFormats(t *testing.T) {
	svc, repo, _ := newEntryFixture(
		models.RecordEntry{ID: "e1", FormatID: "f1", Status: models.EntryPending},
		models.RecordEntry{ID: "e3", FormatID: "f3", Status: models.EntryPending},
	)
	ctx := context.Background()

	entries, page, err := svc.List(ctx, companyUserSession("u1", "c1", "", false), dto.RecordEntryListQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, []string{"f1"}, repo.filters[0].FormatIDs)

	entries, _, err = svc.List(ctx, adminSession(), dto.RecordEntryListQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, _, err = svc.List(ctx, companyUserSession("u1", "c1", "", false), dto.RecordEntryListQuery{FormatID: "f3"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	entries, _, err = svc.List(ctx, companyUserSession("u8", "c1", "", false), dto.RecordEntryListQuery{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, _, err = svc.List(ctx, adminSession(), dto.RecordEntryListQuery{Status: "archived"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRecordEntryDeleteRemovesFile(t *testing.T) {
	path := "record-entries/f1/e1-a.pdf"
	svc, repo, files := newEntryFixture(models.RecordEntry{ID: "e1", FormatID: "f1", FilePath: &path, Status: models.EntryPending})
	files.objects = map[string][]byte{path: []byte("x")}

	link, err := svc.DownloadURL(context.Background(), companyUserSession("u1", "c1", "", false), "e1")
	require.NoError(t, err)
	assert.Contains(t, link.URL, path)

	assert.True(t, errors.Is(svc.Delete(context.Background(), companyUserSession("u1", "c1", "", false), "e1"), appErrors.ErrForbidden))
	require.NoError(t, svc.Delete(context.Background(), adminSession(), "e1"))
	assert.NotContains(t, repo.entries, "e1")
	assert.Equal(t, []string{path}, files.deleted)
}
