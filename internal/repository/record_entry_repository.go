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

const recordEntryColumns = `id, format_id, nombre, fecha_realizacion, file_name, file_size, mime_type, file_path,
uploaded_by, uploaded_at, status, approved_by, approved_at, notes`

// RecordEntryRepository persists dated submissions against record formats.
type RecordEntryRepository struct {
	db *sqlx.DB
}

// NewRecordEntryRepository constructs the repository.
func NewRecordEntryRepository(db *sqlx.DB) *RecordEntryRepository {
	return &RecordEntryRepository{db: db}
}

// List returns a page of entries newest first together with the total count.
func (r *RecordEntryRepository) List(ctx context.Context, filter models.RecordEntryFilter) ([]models.RecordEntry, int, error) {
	var conditions []string
	var args []interface{}
	if filter.FormatIDs != nil {
		args = append(args, pq.Array(filter.FormatIDs))
		conditions = append(conditions, fmt.Sprintf("format_id = ANY($%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf("SELECT %s FROM record_entries%s ORDER BY fecha_realizacion DESC, uploaded_at DESC LIMIT %d OFFSET %d",
		recordEntryColumns, where, pageSize, (page-1)*pageSize)
	var entries []models.RecordEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list record entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM record_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count record entries: %w", err)
	}
	return entries, total, nil
}

// GetByID fetches a single entry.
func (r *RecordEntryRepository) GetByID(ctx context.Context, id string) (*models.RecordEntry, error) {
	var entry models.RecordEntry
	if err := r.db.GetContext(ctx, &entry, "SELECT "+recordEntryColumns+" FROM record_entries WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts a new entry. Status defaults to pending.
func (r *RecordEntryRepository) Create(ctx context.Context, entry *models.RecordEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.UploadedAt.IsZero() {
		entry.UploadedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.EntryPending
	}
	query := `INSERT INTO record_entries (` + recordEntryColumns + `)
VALUES (:id, :format_id, :nombre, :fecha_realizacion, :file_name, :file_size, :mime_type, :file_path,
:uploaded_by, :uploaded_at, :status, :approved_by, :approved_at, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert record entry: %w", err)
	}
	return nil
}

// Decide locks the entry, applies fn and persists the resulting decision.
func (r *RecordEntryRepository) Decide(ctx context.Context, id string, fn func(*models.RecordEntry) error) (entry *models.RecordEntry, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record entry decision: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.RecordEntry
	if err = tx.GetContext(ctx, &current, "SELECT "+recordEntryColumns+" FROM record_entries WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	if err = fn(&current); err != nil {
		return nil, err
	}

	query := `UPDATE record_entries SET status = :status, approved_by = :approved_by, approved_at = :approved_at, notes = :notes WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, &current); err != nil {
		return nil, fmt.Errorf("update record entry: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record entry decision: %w", err)
	}
	return &current, nil
}

// Delete removes an entry and returns its stored file path, if any.
func (r *RecordEntryRepository) Delete(ctx context.Context, id string) (*string, error) {
	var path *string
	if err := r.db.GetContext(ctx, &path, "DELETE FROM record_entries WHERE id = $1 RETURNING file_path", id); err != nil {
		return nil, err
	}
	return path, nil
}

// CountPendingByFormat tallies pending entries per record format.
func (r *RecordEntryRepository) CountPendingByFormat(ctx context.Context, formatIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(formatIDs))
	if len(formatIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		FormatID string `db:"format_id"`
		Count    int    `db:"count"`
	}
	query := `SELECT format_id, COUNT(*) AS count FROM record_entries WHERE status = $1 AND format_id = ANY($2) GROUP BY format_id`
	if err := r.db.SelectContext(ctx, &rows, query, string(models.EntryPending), pq.Array(formatIDs)); err != nil {
		return nil, fmt.Errorf("count pending record entries: %w", err)
	}
	for _, row := range rows {
		counts[row.FormatID] = row.Count
	}
	return counts, nil
}
