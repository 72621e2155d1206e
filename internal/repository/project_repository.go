package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

const projectColumns = `id, sede, descripcion, company_id, fecha_inicio, fecha_fin, status, is_active, created_at, updated_at`

// ProjectRepository persists projects and their contact join rows.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns projects with their contacts attached.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	var conditions []string
	var args []interface{}
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if err := r.attachContacts(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetByID fetches a project with its contacts.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	list := []models.Project{project}
	if err := r.attachContacts(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListContacts returns project/user join rows.
func (r *ProjectRepository) ListContacts(ctx context.Context, filter models.ProjectContactFilter) ([]models.ProjectContact, error) {
	var conditions []string
	var args []interface{}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	query := `SELECT project_id, user_id FROM project_contacts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var contacts []models.ProjectContact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, fmt.Errorf("list project contacts: %w", err)
	}
	return contacts, nil
}

// Create inserts a project and its contact rows atomically.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project, contactIDs []string) (err error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO projects (` + projectColumns + `)
VALUES (:id, :sede, :descripcion, :company_id, :fecha_inicio, :fecha_fin, :status, :is_active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, project); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	if err = insertProjectContacts(ctx, tx, project.ID, contactIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit project: %w", err)
	}
	return nil
}

// Update rewrites the project row and replaces its contacts.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project, contactIDs []string) (err error) {
	project.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE projects SET sede = :sede, descripcion = :descripcion, fecha_inicio = :fecha_inicio,
fecha_fin = :fecha_fin, status = :status, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, update, project)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err = requireAffected(res, "update project"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM project_contacts WHERE project_id = $1`, project.ID); err != nil {
		return fmt.Errorf("clear project contacts: %w", err)
	}
	if err = insertProjectContacts(ctx, tx, project.ID, contactIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit project: %w", err)
	}
	return nil
}

// DeleteCascade removes the contact rows and the project in a single transaction.
// Projects that still own documents fail with a foreign key violation.
func (r *ProjectRepository) DeleteCascade(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM project_contacts WHERE project_id = $1`, id); err != nil {
		return fmt.Errorf("delete project contacts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err = requireAffected(res, "delete project"); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit project delete: %w", err)
	}
	return nil
}

func insertProjectContacts(ctx context.Context, tx *sqlx.Tx, projectID string, userIDs []string) error {
	const insert = `INSERT INTO project_contacts (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, insert, projectID, userID); err != nil {
			return fmt.Errorf("insert project contact: %w", err)
		}
	}
	return nil
}

type projectContactRow struct {
	ProjectID string  `db:"project_id"`
	UserID    string  `db:"user_id"`
	Name      string  `db:"name"`
	Email     string  `db:"email"`
	Telefono  *string `db:"telefono"`
}

func (r *ProjectRepository) attachContacts(ctx context.Context, projects []models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	const query = `SELECT pc.project_id, pc.user_id, u.name, u.email, u.telefono
FROM project_contacts pc JOIN users u ON u.id = pc.user_id
WHERE pc.project_id = ANY($1) ORDER BY u.name`
	var rows []projectContactRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list project contact users: %w", err)
	}
	byProject := make(map[string][]models.ContactPerson, len(projects))
	for _, row := range rows {
		byProject[row.ProjectID] = append(byProject[row.ProjectID], contactFromUser(row))
	}
	for i := range projects {
		projects[i].ContactPersons = byProject[projects[i].ID]
		if projects[i].ContactPersons == nil {
			projects[i].ContactPersons = []models.ContactPerson{}
		}
	}
	return nil
}

// contactFromUser splits the user's display name into given names and surnames.
func contactFromUser(row projectContactRow) models.ContactPerson {
	nombres, apellidos := row.Name, ""
	if parts := strings.Fields(row.Name); len(parts) > 1 {
		nombres = parts[0]
		apellidos = strings.Join(parts[1:], " ")
	}
	c := models.ContactPerson{ID: row.UserID, Nombres: nombres, Apellidos: apellidos, Email: row.Email}
	if row.Telefono != nil {
		c.Telefono = *row.Telefono
	}
	return c
}
