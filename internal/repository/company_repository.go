package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

const companyColumns = `id, razon_social, ruc, is_active, created_at, updated_at`

// CompanyRepository persists companies and their contact persons.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs the repository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// List returns companies with their contacts attached.
func (r *CompanyRepository) List(ctx context.Context, filter models.CompanyFilter) ([]models.Company, error) {
	var conditions []string
	var args []interface{}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, pq.Array(filter.IDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(razon_social) LIKE $%d OR ruc LIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + companyColumns + ` FROM companies`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY razon_social ASC"

	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	if err := r.attachContacts(ctx, companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// GetByID fetches a company and its contacts.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		return nil, err
	}
	list := []models.Company{company}
	if err := r.attachContacts(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create inserts a company and its contacts in one transaction.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) (err error) {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt, company.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin company transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO companies (` + companyColumns + `) VALUES (:id, :razon_social, :ruc, :is_active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, company); err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	if err = insertCompanyContacts(ctx, tx, company); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit company: %w", err)
	}
	return nil
}

// Update rewrites the company row and replaces its contact list.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) (err error) {
	company.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin company transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE companies SET razon_social = :razon_social, ruc = :ruc, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, update, company)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if err = requireAffected(res, "update company"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM company_contacts WHERE company_id = $1`, company.ID); err != nil {
		return fmt.Errorf("clear company contacts: %w", err)
	}
	if err = insertCompanyContacts(ctx, tx, company); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit company: %w", err)
	}
	return nil
}

// SoftDelete marks the company inactive.
func (r *CompanyRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE companies SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete company: %w", err)
	}
	return requireAffected(res, "soft delete company")
}

func insertCompanyContacts(ctx context.Context, tx *sqlx.Tx, company *models.Company) error {
	const insert = `INSERT INTO company_contacts (id, company_id, nombres, apellidos, email, telefono) VALUES (:id, :company_id, :nombres, :apellidos, :email, :telefono)`
	for i := range company.ContactPersons {
		c := &company.ContactPersons[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CompanyID = company.ID
		if _, err := tx.NamedExecContext(ctx, insert, c); err != nil {
			return fmt.Errorf("insert company contact: %w", err)
		}
	}
	return nil
}

func (r *CompanyRepository) attachContacts(ctx context.Context, companies []models.Company) error {
	if len(companies) == 0 {
		return nil
	}
	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	const query = `SELECT id, company_id, nombres, apellidos, email, telefono FROM company_contacts WHERE company_id = ANY($1) ORDER BY apellidos, nombres`
	var contacts []models.ContactPerson
	if err := r.db.SelectContext(ctx, &contacts, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list company contacts: %w", err)
	}
	byCompany := make(map[string][]models.ContactPerson, len(companies))
	for _, c := range contacts {
		byCompany[c.CompanyID] = append(byCompany[c.CompanyID], c)
	}
	for i := range companies {
		companies[i].ContactPersons = byCompany[companies[i].ID]
		if companies[i].ContactPersons == nil {
			companies[i].ContactPersons = []models.ContactPerson{}
		}
	}
	return nil
}

func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
