package repository

import (
	"context"

	"fileportal/internal/model"
)

// FileRepository defines data access for file metadata rows.
type FileRepository interface {
	// Create inserts a new file metadata row and returns the stored record.
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByID returns a file by its ID.
	FindByID(ctx context.Context, id string) (*model.File, error)

	// ListByCompany returns a company's files ordered by uploaded_at DESC.
	ListByCompany(ctx context.Context, companyID string) ([]model.File, error)

	// Delete removes a file row by ID. It returns nil if the row did not exist.
	Delete(ctx context.Context, id string) error
}
