package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

var fixedNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func adminSession() *models.Session {
	return &models.Session{Identity: models.Identity{UserID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}}
}

func companyUserSession(userID, companyID, email string, viewAll bool) *models.Session {
	return &models.Session{Identity: models.Identity{
		UserID:      userID,
		Email:       email,
		Role:        models.RoleCompanyUser,
		CompanyID:   companyID,
		Permissions: models.Permissions{CanViewAllCompanyProjects: viewAll},
	}}
}

type mockAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (m *mockAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type mockCacheRepo struct {
	mu      sync.Mutex
	store   map[string]interface{}
	deleted []string
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	if !ok {
		return errCacheMissForTest
	}
	if resp, ok := v.(*dto.DashboardResponse); ok {
		*(dest.(*dto.DashboardResponse)) = *resp
	}
	return nil
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = map[string]interface{}{}
	}
	m.store[key] = value
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	n := 0
	for k := range m.store {
		if strings.HasPrefix(k, prefix) {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}

// mockProjectScoper resolves visibility with the real rule over fixed data.
type mockProjectScoper struct {
	projects []models.Project
	contacts []models.ProjectContact
	err      error
}

func (m *mockProjectScoper) Scope(ctx context.Context, identity models.Identity) (compliance.ProjectScope, []models.Project, error) {
	if m.err != nil {
		return compliance.ProjectScope{}, nil, m.err
	}
	return compliance.Scope(identity, m.projects, m.contacts), compliance.VisibleProjects(identity, m.projects, m.contacts), nil
}

func (m *mockProjectScoper) EnsureVisible(ctx context.Context, identity models.Identity, projectID string) (*models.Project, error) {
	for _, p := range m.projects {
		if p.ID != projectID {
			continue
		}
		if !compliance.CanSeeProject(identity, p, m.contacts) {
			return nil, repoError(sql.ErrNoRows, "projects.get")
		}
		cp := p
		return &cp, nil
	}
	return nil, repoError(sql.ErrNoRows, "projects.get")
}

type mockFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func (m *mockFileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *mockFileStore) URL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", time.Time{}, sql.ErrNoRows
	}
	return "https://files.test/" + key, fixedNow.Add(ttl), nil
}

func (m *mockFileStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// mockDocumentStore keeps parents in memory and applies Mutate on a copy so a
// failing callback leaves stored state untouched.
type mockDocumentStore struct {
	mu        sync.Mutex
	track     models.Track
	docs      map[string]*models.Document
	createErr error
	listErr   error
	mutations int
}

func newMockDocumentStore(track models.Track, docs ...models.Document) *mockDocumentStore {
	m := &mockDocumentStore{track: track, docs: map[string]*models.Document{}}
	for i := range docs {
		d := docs[i]
		d.Track = track
		m.docs[d.ID] = &d
	}
	return m
}

func (m *mockDocumentStore) Track() models.Track { return m.track }

func (m *mockDocumentStore) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	docs, _ := m.ListSummaries(ctx, filter.ProjectIDs)
	out := docs[:0]
	for _, d := range docs {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.CategoryID != "" && d.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockDocumentStore) ListSummaries(ctx context.Context, projectIDs []string) ([]models.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range projectIDs {
		allowed[id] = true
	}
	var out []models.Document
	for _, d := range m.docs {
		if projectIDs != nil && !allowed[d.ProjectID] {
			continue
		}
		out = append(out, cloneDocument(d))
	}
	return out, nil
}

func (m *mockDocumentStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := cloneDocument(d)
	return &cp, nil
}

func (m *mockDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneDocument(doc)
	m.docs[doc.ID] = &cp
	return nil
}

func (m *mockDocumentStore) Mutate(ctx context.Context, id string, fn func(*models.Document) error) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := cloneDocument(d)
	if err := fn(&working); err != nil {
		return nil, err
	}
	m.mutations++
	m.docs[id] = &working
	out := cloneDocument(&working)
	return &out, nil
}

func (m *mockDocumentStore) Delete(ctx context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	var paths []string
	for _, v := range d.Versions {
		if v.FilePath != nil {
			paths = append(paths, *v.FilePath)
		}
	}
	delete(m.docs, id)
	return paths, nil
}

func (m *mockDocumentStore) ListExpirable(ctx context.Context, filter models.ExpirableFilter) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, d := range m.docs {
		if d.Status == filter.Status && compliance.IsDue(d, filter.Before) {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func cloneDocument(d *models.Document) models.Document {
	cp := *d
	cp.Versions = append([]models.DocumentVersion(nil), d.Versions...)
	cp.Elaborators = append([]models.DocumentRole(nil), d.Elaborators...)
	cp.Reviewers = append([]models.DocumentRole(nil), d.Reviewers...)
	cp.Approvers = append([]models.DocumentRole(nil), d.Approvers...)
	return cp
}

type mockCategoryRepo struct {
	items     map[string]models.DocumentCategory
	upserted  []models.DocumentCategory
	existing  map[string]bool
	createErr error
}

func (m *mockCategoryRepo) List(ctx context.Context, filter models.CategoryFilter) ([]models.DocumentCategory, error) {
	var out []models.DocumentCategory
	for _, c := range m.items {
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if filter.Required != nil && c.IsRequired != *filter.Required {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id string) (*models.DocumentCategory, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.DocumentCategory) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = map[string]models.DocumentCategory{}
	}
	category.ID = "cat-" + category.Name
	m.items[category.ID] = *category
	return nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *models.DocumentCategory) error {
	m.items[category.ID] = *category
	return nil
}

func (m *mockCategoryRepo) SoftDelete(ctx context.Context, id string) error {
	c, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsActive = false
	m.items[id] = c
	return nil
}

func (m *mockCategoryRepo) Upsert(ctx context.Context, category *models.DocumentCategory) (bool, error) {
	m.upserted = append(m.upserted, *category)
	return !m.existing[category.Name], nil
}

type mockEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*models.RecordEntry
	filters []models.RecordEntryFilter
}

func (m *mockEntryRepo) List(ctx context.Context, filter models.RecordEntryFilter) ([]models.RecordEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	allowed := map[string]bool{}
	for _, id := range filter.FormatIDs {
		allowed[id] = true
	}
	var out []models.RecordEntry
	for _, e := range m.entries {
		if filter.FormatIDs != nil && !allowed[e.FormatID] {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockEntryRepo) GetByID(ctx context.Context, id string) (*models.RecordEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *models.RecordEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]*models.RecordEntry{}
	}
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *mockEntryRepo) Decide(ctx context.Context, id string, fn func(*models.RecordEntry) error) (*models.RecordEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *e
	if err := fn(&working); err != nil {
		return nil, err
	}
	m.entries[id] = &working
	cp := working
	return &cp, nil
}

func (m *mockEntryRepo) Delete(ctx context.Context, id string) (*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.entries, id)
	return e.FilePath, nil
}

func (m *mockEntryRepo) CountPendingByFormat(ctx context.Context, formatIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, e := range m.entries {
		if e.Status == models.EntryPending {
			counts[e.FormatID]++
		}
	}
	return counts, nil
}

func pdfUpload(name string) dto.FileUpload {
	body := []byte("%PDF-1.4 test")
	return dto.FileUpload{Filename: name, Size: int64(len(body)), ContentType: "application/pdf", Content: bytes.NewReader(body)}
}

var (
	errCacheMissForTest = appErrors.ErrCacheMiss
	errBackendForTest   = errors.New("connection refused")
	errUniqueForTest    = &pq.Error{Code: "23505"}
)
