package repository

import (
	"context"

	"fileportal/internal/model"
)

// ProfileRepository defines data access for app user profiles.
type ProfileRepository interface {
	// Create inserts a new profile row and returns the stored record.
	Create(ctx context.Context, p *model.Profile) (*model.Profile, error)

	// FindByID returns a profile by account ID, with CompanyName populated
	// when the profile belongs to a company.
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// List returns all profiles with company names, newest first.
	List(ctx context.Context) ([]model.Profile, error)

	// Update applies role/company changes and returns the stored record.
	Update(ctx context.Context, p *model.Profile) (*model.Profile, error)

	// Delete removes a profile row by ID. The identity account is untouched.
	Delete(ctx context.Context, id string) error
}

// AccountRepository defines data access for identity accounts.
type AccountRepository interface {
	// Create inserts a new account and returns the stored record.
	Create(ctx context.Context, a *model.Account) (*model.Account, error)

	// FindByEmail returns an account by email.
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// SetResetToken stores a password reset token and its expiry on the account.
	SetResetToken(ctx context.Context, id, token string, expiry int64) error
}
