package postgres

import (
	"context"
	"database/sql"
	"time"

	"fileportal/internal/model"
	"fileportal/internal/repository"
)

// ProfilePostgres is a PostgreSQL implementation of repository.ProfileRepository.
type ProfilePostgres struct {
	db *sql.DB
}

// NewProfilePostgres creates a new ProfilePostgres repository.
func NewProfilePostgres(db *sql.DB) *ProfilePostgres {
	return &ProfilePostgres{db: db}
}

var _ repository.ProfileRepository = (*ProfilePostgres)(nil)

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var companyID, companyName sql.NullString
	if err := row.Scan(&p.ID, &p.Email, &p.Role, &companyID, &p.CreatedAt, &companyName); err != nil {
		return nil, err
	}
	p.CompanyID = companyID.String
	p.CompanyName = companyName.String
	return &p, nil
}

// Create inserts a new profile row and returns the stored record.
func (r *ProfilePostgres) Create(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
		INSERT INTO app_users (id, email, role, company_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, role, company_id, created_at, NULL
	`
	return scanProfile(r.db.QueryRowContext(ctx, q, p.ID, p.Email, p.Role, nullable(p.CompanyID)))
}

// FindByID fetches a single profile by account ID, joined with its company name.
func (r *ProfilePostgres) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	const q = `
		SELECT u.id, u.email, u.role, u.company_id, u.created_at, c.name
		FROM app_users u
		LEFT JOIN companies c ON c.id = u.company_id
		WHERE u.id = $1
	`
	return scanProfile(r.db.QueryRowContext(ctx, q, id))
}

// List returns all profiles with company names, newest first.
func (r *ProfilePostgres) List(ctx context.Context) ([]model.Profile, error) {
	const q = `
		SELECT u.id, u.email, u.role, u.company_id, u.created_at, c.name
		FROM app_users u
		LEFT JOIN companies c ON c.id = u.company_id
		ORDER BY u.created_at DESC, u.id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies role/company changes and returns the stored record.
func (r *ProfilePostgres) Update(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	const q = `
		UPDATE app_users
		SET email = $2, role = $3, company_id = $4
		WHERE id = $1
		RETURNING id, email, role, company_id, created_at, NULL
	`
	return scanProfile(r.db.QueryRowContext(ctx, q, p.ID, p.Email, p.Role, nullable(p.CompanyID)))
}

// Delete removes a profile row by ID. The identity account is untouched.
func (r *ProfilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM app_users WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// AccountPostgres is a PostgreSQL implementation of repository.AccountRepository.
type AccountPostgres struct {
	db *sql.DB
}

// NewAccountPostgres creates a new AccountPostgres repository.
func NewAccountPostgres(db *sql.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

var _ repository.AccountRepository = (*AccountPostgres)(nil)

// Create inserts a new account and returns the stored record.
func (r *AccountPostgres) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	const q = `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at
	`
	var out model.Account
	if err := r.db.QueryRowContext(ctx, q, a.Email, a.PasswordHash).Scan(
		&out.ID, &out.Email, &out.PasswordHash, &out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByEmail fetches an account by email.
func (r *AccountPostgres) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`
	var a model.Account
	if err := r.db.QueryRowContext(ctx, q, email).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// SetResetToken stores a password reset token and its expiry on the account.
func (r *AccountPostgres) SetResetToken(ctx context.Context, id, token string, expiry int64) error {
	const q = `
		UPDATE accounts
		SET reset_token = $2, reset_token_expiry = $3
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, q, id, token, time.Unix(expiry, 0).UTC())
	return err
}
