package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"fileportal/internal/model"
)

var fileColumns = []string{"id", "company_id", "filename", "path", "mime", "size", "uploaded_by", "uploaded_at"}

func TestFilePostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	f := &model.File{
		CompanyID:  "company-id",
		Filename:   "report.pdf",
		Path:       "company_company-id/1700000000000-report.pdf",
		Mime:       "application/pdf",
		Size:       1024,
		UploadedBy: "user-id",
	}

	rows := sqlmock.NewRows(fileColumns).
		AddRow("file-id", f.CompanyID, f.Filename, f.Path, f.Mime, f.Size, f.UploadedBy, time.Now())

	mock.ExpectQuery("INSERT INTO files").
		WithArgs(f.CompanyID, f.Filename, f.Path, f.Mime, f.Size, f.UploadedBy).
		WillReturnRows(rows)

	stored, err := repo.Create(ctx, f)

	assert.NoError(t, err)
	assert.Equal(t, "file-id", stored.ID)
	assert.Equal(t, f.Path, stored.Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(fileColumns).
			AddRow("file-id", "company-id", "a.png", "company_company-id/1-a.png", "image/png", 10, nil, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM files WHERE id = ?").
			WithArgs("file-id").
			WillReturnRows(rows)

		f, err := repo.FindByID(ctx, "file-id")

		assert.NoError(t, err)
		assert.Equal(t, "a.png", f.Filename)
		assert.Empty(t, f.UploadedBy)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM files WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		f, err := repo.FindByID(ctx, "missing")

		assert.True(t, errors.Is(err, sql.ErrNoRows))
		assert.Nil(t, f)
	})
}

func TestFilePostgres_ListByCompany(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	rows := sqlmock.NewRows(fileColumns).
		AddRow("f1", "company-id", "b.pdf", "p/b.pdf", "application/pdf", 20, "u", time.Now()).
		AddRow("f2", "company-id", "a.png", "p/a.png", "image/png", 10, "u", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM files WHERE company_id = (.+) ORDER BY uploaded_at DESC").
		WithArgs("company-id").
		WillReturnRows(rows)

	items, err := repo.ListByCompany(ctx, "company-id")

	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "f1", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilePostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewFilePostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM files WHERE id = ?").
		WithArgs("file-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, "file-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
