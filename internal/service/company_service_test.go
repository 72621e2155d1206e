package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

type mockCompanyRepo struct {
	items     map[string]models.Company
	filters   []models.CompanyFilter
	createErr error
}

func (m *mockCompanyRepo) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, error) {
	m.filters = append(m.filters, filter)
	var out []models.Company
	for _, c := range m.items {
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		if len(filter.IDs) > 0 && filter.IDs[0] != c.ID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id string) (*models.Company, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *mockCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	if m.createErr != nil {
		return m.createErr
	}
	company.ID = "c-new"
	m.items[company.ID] = *company
	return nil
}

func (m *mockCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	m.items[company.ID] = *company
	return nil
}

func (m *mockCompanyRepo) SoftDelete(ctx context.Context, id string) error {
	c, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsActive = false
	m.items[id] = c
	return nil
}

func newCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{items: map[string]models.Company{
		"c1": {ID: "c1", RazonSocial: "Minera Sur SAC", RUC: "20123456789", IsActive: true},
		"c2": {ID: "c2", RazonSocial: "Constructora Norte", RUC: "20987654321", IsActive: true},
		"c3": {ID: "c3", RazonSocial: "Cerrada SRL", RUC: "20111111111", IsActive: false},
	}}
}

func TestCompanyListScopesCompanyUsers(t *testing.T) {
	repo := newCompanyRepo()
	svc := NewCompanyService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	companies, err := svc.List(ctx, companyUserSession("u1", "c1", "", false), dto.CompanyListQuery{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "c1", companies[0].ID)

	companies, err = svc.List(ctx, companyUserSession("u1", "", "", false), dto.CompanyListQuery{})
	require.NoError(t, err)
	assert.Empty(t, companies)

	companies, err = svc.List(ctx, adminSession(), dto.CompanyListQuery{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, companies, 3)

	companies, err = svc.List(ctx, adminSession(), dto.CompanyListQuery{})
	require.NoError(t, err)
	assert.Len(t, companies, 2)
}

func TestCompanyGetHidesOtherCompanies(t *testing.T) {
	svc := NewCompanyService(newCompanyRepo(), nil, nil, nil, nil)
	_, err := svc.Get(context.Background(), companyUserSession("u1", "c1", "", true), "c2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	company, err := svc.Get(context.Background(), adminSession(), "c3")
	require.NoError(t, err)
	assert.False(t, company.IsActive)
}

func TestCompanyWrites(t *testing.T) {
	repo := newCompanyRepo()
	audit := &mockAuditRepo{}
	svc := NewCompanyService(repo, audit, nil, nil, nil)
	ctx := context.Background()
	req := dto.CompanyRequest{
		RazonSocial:    " Andes Energia SA ",
		RUC:            "20555555555",
		ContactPersons: []dto.ContactPersonRequest{{Nombres: "Ana", Apellidos: "Diaz", Email: "ANA@andes.pe"}},
	}

	_, err := svc.Create(ctx, companyUserSession("u1", "c1", "", true), req)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	company, err := svc.Create(ctx, adminSession(), req)
	require.NoError(t, err)
	assert.Equal(t, "Andes Energia SA", company.RazonSocial)
	assert.True(t, company.IsActive)
	assert.Equal(t, "ana@andes.pe", company.ContactPersons[0].Email)

	bad := req
	bad.RUC = "123"
	_, err = svc.Create(ctx, adminSession(), bad)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	repo.createErr = errUniqueForTest
	_, err = svc.Create(ctx, adminSession(), req)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	inactive := false
	req.IsActive = &inactive
	updated, err := svc.Update(ctx, adminSession(), "c1", req)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, svc.Delete(ctx, adminSession(), "c2"))
	assert.False(t, repo.items["c2"].IsActive)
	assert.True(t, errors.Is(svc.Delete(ctx, adminSession(), "nope"), appErrors.ErrNotFound))
	assert.Equal(t, []string{models.AuditActionCompanyCreate, models.AuditActionCompanyUpdate, models.AuditActionCompanyDelete}, audit.actions())
}
