package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

const categoryColumns = `id, name, description, normative_reference, type, is_required, renewal_period_months, is_active, created_at, updated_at`

// CategoryRepository persists the shared category catalog.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories matching filter.
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]models.DocumentCategory, error) {
	var conditions []string
	var args []interface{}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.Required != nil {
		args = append(args, *filter.Required)
		conditions = append(conditions, fmt.Sprintf("is_required = $%d", len(args)))
	}
	query := `SELECT ` + categoryColumns + ` FROM document_categories`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY type ASC, name ASC"

	var categories []models.DocumentCategory
	if err := r.db.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetByID fetches one category.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.DocumentCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM document_categories WHERE id = $1`
	var category models.DocumentCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.DocumentCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now
	const query = `INSERT INTO document_categories (` + categoryColumns + `)
VALUES (:id, :name, :description, :normative_reference, :type, :is_required, :renewal_period_months, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a category. Type is fixed after creation.
func (r *CategoryRepository) Update(ctx context.Context, category *models.DocumentCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE document_categories SET name = :name, description = :description, normative_reference = :normative_reference,
is_required = :is_required, renewal_period_months = :renewal_period_months, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, category)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireAffected(res, "update category")
}

// SoftDelete marks a category inactive.
func (r *CategoryRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE document_categories SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete category: %w", err)
	}
	return requireAffected(res, "soft delete category")
}

// Upsert inserts or refreshes a category keyed by (type, name). Used by the catalog seeder.
func (r *CategoryRepository) Upsert(ctx context.Context, category *models.DocumentCategory) (inserted bool, err error) {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now
	const query = `INSERT INTO document_categories (` + categoryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (type, name) DO UPDATE SET description = EXCLUDED.description, normative_reference = EXCLUDED.normative_reference,
is_required = EXCLUDED.is_required, renewal_period_months = EXCLUDED.renewal_period_months, is_active = TRUE, updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`
	var out struct {
		ID       string `db:"id"`
		Inserted bool   `db:"inserted"`
	}
	if err := r.db.QueryRowxContext(ctx, query,
		category.ID, category.Name, category.Description, category.NormativeReference, string(category.Type),
		category.IsRequired, category.RenewalPeriodMonths, category.IsActive, category.CreatedAt, category.UpdatedAt,
	).StructScan(&out); err != nil {
		return false, fmt.Errorf("upsert category: %w", err)
	}
	category.ID = out.ID
	return out.Inserted, nil
}
