package postgres

import (
	"context"
	"database/sql"

	"fileportal/internal/model"
	"fileportal/internal/repository"
)

// CompanyPostgres is a PostgreSQL implementation of repository.CompanyRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CompanyPostgres struct {
	db *sql.DB
}

// NewCompanyPostgres creates a new CompanyPostgres repository.
func NewCompanyPostgres(db *sql.DB) *CompanyPostgres {
	return &CompanyPostgres{db: db}
}

var _ repository.CompanyRepository = (*CompanyPostgres)(nil)

func scanCompany(row interface{ Scan(...any) error }) (*model.Company, error) {
	var c model.Company
	var domain sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &domain, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Domain = domain.String
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a new company row and returns the stored record.
func (r *CompanyPostgres) Create(ctx context.Context, c *model.Company) (*model.Company, error) {
	const q = `
		INSERT INTO companies (name, domain)
		VALUES ($1, $2)
		RETURNING id, name, domain, created_at
	`
	return scanCompany(r.db.QueryRowContext(ctx, q, c.Name, nullable(c.Domain)))
}

// FindByID fetches a single company by its ID.
func (r *CompanyPostgres) FindByID(ctx context.Context, id string) (*model.Company, error) {
	const q = `
		SELECT id, name, domain, created_at
		FROM companies
		WHERE id = $1
	`
	return scanCompany(r.db.QueryRowContext(ctx, q, id))
}

// List returns all companies ordered by name.
func (r *CompanyPostgres) List(ctx context.Context) ([]model.Company, error) {
	const q = `
		SELECT id, name, domain, created_at
		FROM companies
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCompanies(rows)
}

// Search returns companies whose name or domain matches the ILIKE pattern.
func (r *CompanyPostgres) Search(ctx context.Context, query string) ([]model.Company, error) {
	const q = `
		SELECT id, name, domain, created_at
		FROM companies
		WHERE name ILIKE $1 OR domain ILIKE $1
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCompanies(rows)
}

func collectCompanies(rows *sql.Rows) ([]model.Company, error) {
	items := make([]model.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListWithFileCounts returns all companies with the number of files each owns.
func (r *CompanyPostgres) ListWithFileCounts(ctx context.Context) ([]model.CompanyStats, error) {
	const q = `
		SELECT c.id, c.name, c.domain, c.created_at, COUNT(f.id)
		FROM companies c
		LEFT JOIN files f ON f.company_id = c.id
		GROUP BY c.id, c.name, c.domain, c.created_at
		ORDER BY c.name
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.CompanyStats, 0)
	for rows.Next() {
		var s model.CompanyStats
		var domain sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &domain, &s.CreatedAt, &s.FileCount); err != nil {
			return nil, err
		}
		s.Domain = domain.String
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies name/domain changes and returns the stored record.
func (r *CompanyPostgres) Update(ctx context.Context, c *model.Company) (*model.Company, error) {
	const q = `
		UPDATE companies
		SET name = $2, domain = $3
		WHERE id = $1
		RETURNING id, name, domain, created_at
	`
	return scanCompany(r.db.QueryRowContext(ctx, q, c.ID, c.Name, nullable(c.Domain)))
}

// Delete removes a company by ID. It does not return an error if the row does not exist.
func (r *CompanyPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM companies WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// HasFiles reports whether at least one file references the company.
func (r *CompanyPostgres) HasFiles(ctx context.Context, companyID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM files WHERE company_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// HasUsers reports whether at least one app user references the company.
func (r *CompanyPostgres) HasUsers(ctx context.Context, companyID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM app_users WHERE company_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
