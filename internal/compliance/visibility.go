package compliance

import "github.com/noah-isme/compliance-docs-api/internal/models"

// ProjectScope is the set of project IDs an identity may see.
type ProjectScope struct {
	all bool
	ids map[string]struct{}
}

// Contains reports whether the project ID is inside the scope.
func (s ProjectScope) Contains(projectID string) bool {
	if s.all {
		return true
	}
	_, ok := s.ids[projectID]
	return ok
}

// IDs lists the visible project IDs. Unrestricted scopes return nil; check All first.
func (s ProjectScope) IDs() []string {
	if s.all {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// All reports whether the scope is unrestricted.
func (s ProjectScope) All() bool { return s.all }

// Empty reports whether nothing is visible.
func (s ProjectScope) Empty() bool { return !s.all && len(s.ids) == 0 }

// Scope resolves the projects visible to identity. Admins see everything.
// Company users see their company's projects when allowed to, otherwise only the
// projects listing them as a contact. A company user without a company, or an
// unknown role, sees nothing.
func Scope(identity models.Identity, projects []models.Project, contacts []models.ProjectContact) ProjectScope {
	switch identity.Role {
	case models.RoleAdmin:
		return ProjectScope{all: true}
	case models.RoleCompanyUser:
	default:
		return ProjectScope{}
	}
	if identity.CompanyID == "" || identity.UserID == "" {
		return ProjectScope{}
	}

	ids := make(map[string]struct{})
	if identity.Permissions.CanViewAllCompanyProjects {
		for _, p := range projects {
			if p.CompanyID == identity.CompanyID {
				ids[p.ID] = struct{}{}
			}
		}
		return ProjectScope{ids: ids}
	}

	known := make(map[string]string, len(projects))
	for _, p := range projects {
		known[p.ID] = p.CompanyID
	}
	for _, c := range contacts {
		if c.UserID != identity.UserID {
			continue
		}
		companyID, ok := known[c.ProjectID]
		if !ok || companyID != identity.CompanyID {
			continue
		}
		ids[c.ProjectID] = struct{}{}
	}
	return ProjectScope{ids: ids}
}

// VisibleProjects filters projects down to those identity may see.
func VisibleProjects(identity models.Identity, projects []models.Project, contacts []models.ProjectContact) []models.Project {
	scope := Scope(identity, projects, contacts)
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if scope.Contains(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// CanSeeProject reports whether a single project is visible.
func CanSeeProject(identity models.Identity, project models.Project, contacts []models.ProjectContact) bool {
	return Scope(identity, []models.Project{project}, contacts).Contains(project.ID)
}

// VisibleDocuments keeps the documents whose owning project is visible.
func VisibleDocuments(identity models.Identity, projects []models.Project, contacts []models.ProjectContact, docs []models.Document) []models.Document {
	scope := Scope(identity, projects, contacts)
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if scope.Contains(d.ProjectID) {
			out = append(out, d)
		}
	}
	return out
}

// VisibleRecordEntries keeps the entries whose record format is visible.
func VisibleRecordEntries(identity models.Identity, projects []models.Project, contacts []models.ProjectContact, formats []models.Document, entries []models.RecordEntry) []models.RecordEntry {
	visible := make(map[string]struct{})
	for _, f := range VisibleDocuments(identity, projects, contacts, formats) {
		visible[f.ID] = struct{}{}
	}
	out := make([]models.RecordEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := visible[e.FormatID]; ok {
			out = append(out, e)
		}
	}
	return out
}
