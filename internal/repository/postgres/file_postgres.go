package postgres

import (
	"context"
	"database/sql"

	"fileportal/internal/model"
	"fileportal/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

func scanFile(row interface{ Scan(...any) error }) (*model.File, error) {
	var f model.File
	var uploadedBy sql.NullString
	if err := row.Scan(
		&f.ID,
		&f.CompanyID,
		&f.Filename,
		&f.Path,
		&f.Mime,
		&f.Size,
		&uploadedBy,
		&f.UploadedAt,
	); err != nil {
		return nil, err
	}
	f.UploadedBy = uploadedBy.String
	return &f, nil
}

// Create inserts a new file metadata row and returns the stored record.
func (r *FilePostgres) Create(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		INSERT INTO files (company_id, filename, path, mime, size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, company_id, filename, path, mime, size, uploaded_by, uploaded_at
	`
	return scanFile(r.db.QueryRowContext(ctx, q,
		f.CompanyID,
		f.Filename,
		f.Path,
		f.Mime,
		f.Size,
		nullable(f.UploadedBy),
	))
}

// FindByID fetches a single file by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.File, error) {
	const q = `
		SELECT id, company_id, filename, path, mime, size, uploaded_by, uploaded_at
		FROM files
		WHERE id = $1
	`
	return scanFile(r.db.QueryRowContext(ctx, q, id))
}

// ListByCompany returns a company's files ordered by uploaded_at DESC.
func (r *FilePostgres) ListByCompany(ctx context.Context, companyID string) ([]model.File, error) {
	const q = `
		SELECT id, company_id, filename, path, mime, size, uploaded_by, uploaded_at
		FROM files
		WHERE company_id = $1
		ORDER BY uploaded_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a file row by ID. It does not return an error if the row does not exist.
func (r *FilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM files WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
