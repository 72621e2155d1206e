package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

func projectIDs(projects []models.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

var sampleProjects = []models.Project{
	{ID: "P1", CompanyID: "C1"},
	{ID: "P2", CompanyID: "C2"},
}

func TestVisibleProjectsAdminSeesAll(t *testing.T) {
	admin := models.Identity{UserID: "u-admin", Role: models.RoleAdmin}
	got := VisibleProjects(admin, sampleProjects, nil)
	assert.Equal(t, []string{"P1", "P2"}, projectIDs(got))
}

func TestVisibleProjectsCompanyWide(t *testing.T) {
	user := models.Identity{
		UserID:      "u1",
		Role:        models.RoleCompanyUser,
		CompanyID:   "C1",
		Permissions: models.Permissions{CanViewAllCompanyProjects: true},
	}
	got := VisibleProjects(user, sampleProjects, nil)
	assert.Equal(t, []string{"P1"}, projectIDs(got))
}

func TestVisibleProjectsContactOnly(t *testing.T) {
	user := models.Identity{UserID: "u1", Role: models.RoleCompanyUser, CompanyID: "C1"}

	withContact := VisibleProjects(user, sampleProjects, []models.ProjectContact{{ProjectID: "P1", UserID: "u1"}})
	assert.Equal(t, []string{"P1"}, projectIDs(withContact))

	without := VisibleProjects(user, sampleProjects, []models.ProjectContact{{ProjectID: "P1", UserID: "someone-else"}})
	assert.Empty(t, without)
}

func TestVisibleProjectsFailsClosedWithoutCompany(t *testing.T) {
	contacts := []models.ProjectContact{{ProjectID: "P1", UserID: "u1"}}
	for _, all := range []bool{true, false} {
		user := models.Identity{
			UserID:      "u1",
			Role:        models.RoleCompanyUser,
			Permissions: models.Permissions{CanViewAllCompanyProjects: all},
		}
		assert.Empty(t, VisibleProjects(user, sampleProjects, contacts))
	}
}

func TestVisibleProjectsUnknownRole(t *testing.T) {
	user := models.Identity{UserID: "u1", Role: "auditor", CompanyID: "C1"}
	assert.Empty(t, VisibleProjects(user, sampleProjects, nil))
}

func TestVisibleDocumentsFollowProject(t *testing.T) {
	user := models.Identity{UserID: "u1", Role: models.RoleCompanyUser, CompanyID: "C1"}
	contacts := []models.ProjectContact{{ProjectID: "P1", UserID: "u1"}}
	docs := []models.Document{
		{ID: "D1", ProjectID: "P1"},
		{ID: "D2", ProjectID: "P2"},
	}

	got := VisibleDocuments(user, sampleProjects, contacts, docs)
	assert.Len(t, got, 1)
	assert.Equal(t, "D1", got[0].ID)

	entries := []models.RecordEntry{{ID: "E1", FormatID: "D1"}, {ID: "E2", FormatID: "D2"}}
	visible := VisibleRecordEntries(user, sampleProjects, contacts, docs, entries)
	assert.Len(t, visible, 1)
	assert.Equal(t, "E1", visible[0].ID)
}

func TestScope(t *testing.T) {
	user := models.Identity{UserID: "u1", Role: models.RoleCompanyUser, CompanyID: "C1"}
	scope := Scope(user, sampleProjects, []models.ProjectContact{{ProjectID: "P1", UserID: "u1"}})
	assert.False(t, scope.All())
	assert.True(t, scope.Contains("P1"))
	assert.False(t, scope.Contains("P2"))
	assert.Equal(t, []string{"P1"}, scope.IDs())

	assert.True(t, CanSeeProject(models.Identity{Role: models.RoleAdmin}, sampleProjects[1], nil))
	assert.True(t, Scope(models.Identity{}, sampleProjects, nil).Empty())
}
