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
	"github.com/noah-isme/compliance-docs-api/pkg/database"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

const parentColumns = `id, nombre, category_id, project_id, version, codigo, fecha_creacion, fecha_vencimiento, status,
created_by, approved_by, approved_at, notes, created_at, updated_at`

// trackTables names the three tables backing one track and their parent key column.
type trackTables struct {
	parent   string
	versions string
	roles    string
	fk       string
}

var tablesByTrack = map[models.Track]trackTables{
	models.TrackDocument: {parent: "documents", versions: "document_versions", roles: "document_roles", fk: "document_id"},
	models.TrackRecord:   {parent: "record_formats", versions: "record_format_versions", roles: "record_format_roles", fk: "format_id"},
}

// DocumentRepository persists one track of controlled artifacts: documents or
// record formats. Both share the same shape and differ only in table names.
type DocumentRepository struct {
	db     *sqlx.DB
	track  models.Track
	tables trackTables
}

// NewDocumentRepository constructs the repository for track.
func NewDocumentRepository(db *sqlx.DB, track models.Track) *DocumentRepository {
	tables, ok := tablesByTrack[track]
	if !ok {
		track, tables = models.TrackDocument, tablesByTrack[models.TrackDocument]
	}
	return &DocumentRepository{db: db, track: track, tables: tables}
}

// Track reports which track the repository serves.
func (r *DocumentRepository) Track() models.Track { return r.track }

// List returns a page of parents with versions and roles attached, plus the total count.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	where, args := r.filterClause(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT %d OFFSET %d", parentColumns, r.tables.parent, where, pageSize, offset)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.tables.parent, err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", r.tables.parent, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.tables.parent, err)
	}

	if err := r.attachChildren(ctx, r.db, docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// ListSummaries returns parent rows without children for every project in
// projectIDs; nil means every project.
func (r *DocumentRepository) ListSummaries(ctx context.Context, projectIDs []string) ([]models.Document, error) {
	where, args := r.filterClause(models.DocumentFilter{ProjectIDs: projectIDs})
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY project_id, codigo", parentColumns, r.tables.parent, where)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list %s summaries: %w", r.tables.parent, err)
	}
	for i := range docs {
		docs[i].Track = r.track
	}
	return docs, nil
}

// GetByID fetches one parent with its versions and roles.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", parentColumns, r.tables.parent)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	docs := []models.Document{doc}
	if err := r.attachChildren(ctx, r.db, docs); err != nil {
		return nil, err
	}
	return &docs[0], nil
}

// Create inserts the parent with its roles and initial versions in one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) (err error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	doc.Track = r.track

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s create: %w", r.tables.parent, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insert := fmt.Sprintf(`INSERT INTO %s (%s)
VALUES (:id, :nombre, :category_id, :project_id, :version, :codigo, :fecha_creacion, :fecha_vencimiento, :status,
:created_by, :approved_by, :approved_at, :notes, :created_at, :updated_at)`, r.tables.parent, parentColumns)
	if _, err = tx.NamedExecContext(ctx, insert, doc); err != nil {
		return fmt.Errorf("insert %s: %w", r.tables.parent, err)
	}
	for _, role := range doc.Roles() {
		if err = r.insertRole(ctx, tx, doc.ID, role); err != nil {
			return err
		}
	}
	for i := range doc.Versions {
		if err = r.insertVersion(ctx, tx, doc.ID, &doc.Versions[i]); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s create: %w", r.tables.parent, err)
	}
	return nil
}

// Mutate locks the parent row, loads it with its children, applies fn and
// writes back status, version label and version activity in the same
// transaction. Concurrent mutations of one parent serialize on the row lock.
func (r *DocumentRepository) Mutate(ctx context.Context, id string, fn func(*models.Document) error) (doc *models.Document, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s mutation: %w", r.tables.parent, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lock := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", parentColumns, r.tables.parent)
	var current models.Document
	if err = tx.GetContext(ctx, &current, lock, id); err != nil {
		return nil, err
	}
	docs := []models.Document{current}
	if err = r.attachChildren(ctx, tx, docs); err != nil {
		return nil, err
	}
	doc = &docs[0]

	before := make(map[string]bool, len(doc.Versions))
	for _, v := range doc.Versions {
		before[v.ID] = v.IsActive
	}

	if err = fn(doc); err != nil {
		return nil, err
	}

	var deactivate, activate []string
	var inserts []int
	for i, v := range doc.Versions {
		wasActive, existed := before[v.ID]
		switch {
		case !existed || v.ID == "":
			inserts = append(inserts, i)
		case wasActive && !v.IsActive:
			deactivate = append(deactivate, v.ID)
		case !wasActive && v.IsActive:
			activate = append(activate, v.ID)
		}
	}

	setActive := fmt.Sprintf("UPDATE %s SET is_active = $1 WHERE id = ANY($2)", r.tables.versions)
	if len(deactivate) > 0 {
		if _, err = tx.ExecContext(ctx, setActive, false, pq.Array(deactivate)); err != nil {
			return nil, fmt.Errorf("deactivate %s: %w", r.tables.versions, err)
		}
	}
	if len(activate) > 0 {
		if _, err = tx.ExecContext(ctx, setActive, true, pq.Array(activate)); err != nil {
			return nil, fmt.Errorf("activate %s: %w", r.tables.versions, err)
		}
	}
	for _, i := range inserts {
		if err = r.insertVersion(ctx, tx, doc.ID, &doc.Versions[i]); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, appErrors.Clone(appErrors.ErrVersionConflict, "version number already exists")
			}
			return nil, err
		}
	}

	doc.UpdatedAt = time.Now().UTC()
	update := fmt.Sprintf(`UPDATE %s SET version = :version, status = :status, approved_by = :approved_by,
approved_at = :approved_at, notes = :notes, updated_at = :updated_at WHERE id = :id`, r.tables.parent)
	if _, err = tx.NamedExecContext(ctx, update, doc); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.tables.parent, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s mutation: %w", r.tables.parent, err)
	}
	return doc, nil
}

// ListExpirable returns IDs of approved parents whose due date is before asOf's day.
func (r *DocumentRepository) ListExpirable(ctx context.Context, filter models.ExpirableFilter) ([]string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	status := filter.Status
	if status == "" {
		status = models.StatusApproved
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE status = $1 AND fecha_vencimiento IS NOT NULL AND fecha_vencimiento < $2
ORDER BY fecha_vencimiento ASC LIMIT %d`, r.tables.parent, limit)
	day := time.Date(filter.Before.Year(), filter.Before.Month(), filter.Before.Day(), 0, 0, 0, 0, time.UTC)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, string(status), day); err != nil {
		return nil, fmt.Errorf("list expirable %s: %w", r.tables.parent, err)
	}
	return ids, nil
}

// Delete removes the parent with its roles, versions and, for record formats,
// its entries. It returns the storage paths of every removed file.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (paths []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s delete: %w", r.tables.parent, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", r.tables.parent), id); err != nil {
		return nil, err
	}

	filesQuery := fmt.Sprintf("SELECT file_path FROM %s WHERE %s = $1 AND file_path IS NOT NULL", r.tables.versions, r.tables.fk)
	if err = tx.SelectContext(ctx, &paths, filesQuery, id); err != nil {
		return nil, fmt.Errorf("collect %s files: %w", r.tables.versions, err)
	}
	if r.track == models.TrackRecord {
		var entryPaths []string
		if err = tx.SelectContext(ctx, &entryPaths, `SELECT file_path FROM record_entries WHERE format_id = $1 AND file_path IS NOT NULL`, id); err != nil {
			return nil, fmt.Errorf("collect record entry files: %w", err)
		}
		paths = append(paths, entryPaths...)
		if _, err = tx.ExecContext(ctx, `DELETE FROM record_entries WHERE format_id = $1`, id); err != nil {
			return nil, fmt.Errorf("delete record entries: %w", err)
		}
	}

	for _, table := range []string{r.tables.roles, r.tables.versions} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, r.tables.fk), id); err != nil {
			return nil, fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tables.parent), id); err != nil {
		return nil, fmt.Errorf("delete %s: %w", r.tables.parent, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s delete: %w", r.tables.parent, err)
	}
	return paths, nil
}

func (r *DocumentRepository) filterClause(filter models.DocumentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.ProjectIDs != nil {
		args = append(args, pq.Array(filter.ProjectIDs))
		conditions = append(conditions, fmt.Sprintf("project_id = ANY($%d)", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(nombre) LIKE $%d OR LOWER(codigo) LIKE $%d)", len(args), len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *DocumentRepository) attachChildren(ctx context.Context, q sqlx.QueryerContext, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	for i := range docs {
		docs[i].Track = r.track
		ids[i] = docs[i].ID
	}

	versionQuery := fmt.Sprintf(`SELECT id, %[1]s AS document_id, version_number, file_name, file_size, mime_type, file_path,
uploaded_by, uploaded_at, changes, is_active FROM %[2]s WHERE %[1]s = ANY($1) ORDER BY uploaded_at ASC`, r.tables.fk, r.tables.versions)
	var versions []models.DocumentVersion
	if err := sqlx.SelectContext(ctx, q, &versions, versionQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("list %s: %w", r.tables.versions, err)
	}

	roleQuery := fmt.Sprintf(`SELECT id, %[1]s AS document_id, nombres, apellidos, email, role FROM %[2]s
WHERE %[1]s = ANY($1) ORDER BY apellidos, nombres`, r.tables.fk, r.tables.roles)
	var roles []models.DocumentRole
	if err := sqlx.SelectContext(ctx, q, &roles, roleQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("list %s: %w", r.tables.roles, err)
	}

	versionsByDoc := make(map[string][]models.DocumentVersion, len(docs))
	for _, v := range versions {
		versionsByDoc[v.DocumentID] = append(versionsByDoc[v.DocumentID], v)
	}
	rolesByDoc := make(map[string][]models.DocumentRole, len(docs))
	for _, role := range roles {
		rolesByDoc[role.DocumentID] = append(rolesByDoc[role.DocumentID], role)
	}
	for i := range docs {
		docs[i].Versions = versionsByDoc[docs[i].ID]
		if docs[i].Versions == nil {
			docs[i].Versions = []models.DocumentVersion{}
		}
		docs[i].AssignRoles(rolesByDoc[docs[i].ID])
	}
	return nil
}

func (r *DocumentRepository) insertVersion(ctx context.Context, tx *sqlx.Tx, parentID string, v *models.DocumentVersion) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.UploadedAt.IsZero() {
		v.UploadedAt = time.Now().UTC()
	}
	v.DocumentID = parentID
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, version_number, file_name, file_size, mime_type, file_path, uploaded_by, uploaded_at, changes, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, r.tables.versions, r.tables.fk)
	if _, err := tx.ExecContext(ctx, query, v.ID, parentID, v.VersionNumber, v.FileName, v.FileSize, v.MimeType, v.FilePath,
		v.UploadedBy, v.UploadedAt, v.Changes, v.IsActive); err != nil {
		return fmt.Errorf("insert %s: %w", r.tables.versions, err)
	}
	return nil
}

func (r *DocumentRepository) insertRole(ctx context.Context, tx *sqlx.Tx, parentID string, role models.DocumentRole) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, %s, nombres, apellidos, email, role) VALUES ($1, $2, $3, $4, $5, $6)`, r.tables.roles, r.tables.fk)
	if _, err := tx.ExecContext(ctx, query, role.ID, parentID, role.Nombres, role.Apellidos, role.Email, string(role.Role)); err != nil {
		return fmt.Errorf("insert %s: %w", r.tables.roles, err)
	}
	return nil
}
