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

const userColumns = `id, name, email, telefono, role, company_id, is_active, can_view_all_company_projects, created_at, updated_at`

// userRow is the users table shape; the permission flag is a plain column.
type userRow struct {
	ID                        string    `db:"id"`
	Name                      string    `db:"name"`
	Email                     string    `db:"email"`
	Telefono                  *string   `db:"telefono"`
	Role                      string    `db:"role"`
	CompanyID                 *string   `db:"company_id"`
	IsActive                  bool      `db:"is_active"`
	CanViewAllCompanyProjects bool      `db:"can_view_all_company_projects"`
	CreatedAt                 time.Time `db:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at"`
}

func (r userRow) toModel() models.User {
	return models.User{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Telefono:    r.Telefono,
		Role:        models.UserRole(strings.ToLower(r.Role)),
		CompanyID:   r.CompanyID,
		IsActive:    r.IsActive,
		Permissions: models.Permissions{CanViewAllCompanyProjects: r.CanViewAllCompanyProjects},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func userRowFrom(u *models.User) userRow {
	return userRow{
		ID:                        u.ID,
		Name:                      u.Name,
		Email:                     u.Email,
		Telefono:                  u.Telefono,
		Role:                      string(u.Role),
		CompanyID:                 u.CompanyID,
		IsActive:                  u.IsActive,
		CanViewAllCompanyProjects: u.Permissions.CanViewAllCompanyProjects,
		CreatedAt:                 u.CreatedAt,
		UpdatedAt:                 u.UpdatedAt,
	}
}

// UserRepository handles persistence for platform users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID fetches a user by the auth provider's subject ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	user := row.toModel()
	return &user, nil
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		return nil, err
	}
	user := row.toModel()
	return &user, nil
}

// List returns users matching filter ordered by name.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var conditions []string
	var args []interface{}

	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC"

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

// Create inserts a user profile row. The ID must match the auth provider's subject.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (` + userColumns + `)
VALUES (:id, :name, :email, :telefono, :role, :company_id, :is_active, :can_view_all_company_projects, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, userRowFrom(user)); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable profile fields.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, telefono = :telefono, role = :role, company_id = :company_id,
is_active = :is_active, can_view_all_company_projects = :can_view_all_company_projects, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, userRowFrom(user)); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
