package repository

import (
	"context"

	"fileportal/internal/model"
)

// CompanyRepository defines data access for companies.
type CompanyRepository interface {
	// Create inserts a new company row and returns the stored record
	// (may include values set by the DB, e.g. id and created_at).
	Create(ctx context.Context, c *model.Company) (*model.Company, error)

	// FindByID returns a company by its ID.
	FindByID(ctx context.Context, id string) (*model.Company, error)

	// List returns all companies ordered by name.
	List(ctx context.Context) ([]model.Company, error)

	// Search returns companies whose name or domain matches the pattern
	// (case-insensitive substring), ordered by name.
	Search(ctx context.Context, query string) ([]model.Company, error)

	// ListWithFileCounts returns all companies with the number of files each owns.
	ListWithFileCounts(ctx context.Context) ([]model.CompanyStats, error)

	// Update applies name/domain changes and returns the stored record.
	Update(ctx context.Context, c *model.Company) (*model.Company, error)

	// Delete removes a company by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error

	// HasFiles reports whether at least one file references the company.
	HasFiles(ctx context.Context, companyID string) (bool, error)

	// HasUsers reports whether at least one app user references the company.
	HasUsers(ctx context.Context, companyID string) (bool, error)
}
