package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fileportal/internal/config"
	"fileportal/internal/model"
	repoMocks "fileportal/internal/repository/mocks"
	"fileportal/internal/storage"
	storeMocks "fileportal/internal/storage/mocks"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize:      50 * 1024 * 1024,
		AllowedMimeTypes: config.DefaultAllowedMimeTypes,
		PreviewableTypes: config.DefaultPreviewableTypes,
		SignedURLExpiry:  60 * time.Second,
	}
}

func newTestFileService(store *storeMocks.MockStorage, repo *repoMocks.MockFileRepository) *fileService {
	svc := NewFileService(store, repo, testUploadConfig()).(*fileService)
	// Pin the clock so storage keys are deterministic.
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func pngInput(name, content string) UploadInput {
	return UploadInput{
		Reader:   strings.NewReader(content),
		Filename: name,
		Mime:     "image/png",
		Size:     int64(len(content)),
	}
}

func TestFileService_UploadBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("no company selected rejects the whole batch", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		res, err := svc.UploadBatch(ctx, "", "user-1", []UploadInput{pngInput("a.png", "data")})

		assert.ErrorIs(t, err, ErrNoCompany)
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversize file rejected before any storage call", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		big := UploadInput{
			Reader:   strings.NewReader(""),
			Filename: "big.png",
			Mime:     "image/png",
			Size:     60 * 1024 * 1024,
		}

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{big})

		assert.NoError(t, err)
		assert.Len(t, res.Rejected, 1)
		assert.Equal(t, "big.png", res.Rejected[0].Filename)
		assert.Contains(t, res.Rejected[0].Reasons[0], "exceeds")
		assert.Empty(t, res.Outcomes)
		assert.Equal(t, 0, res.Succeeded)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("disallowed type rejected, valid sibling unaffected", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		exe := UploadInput{
			Reader:   strings.NewReader("mz"),
			Filename: "setup.exe",
			Mime:     "application/x-msdownload",
			Size:     2,
		}
		ok := pngInput("logo.png", "png-bytes")

		wantKey := "company_company-1/1700000000000-logo.png"
		mStore.On("Put", mock.Anything, wantKey, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: wantKey, Size: ok.Size}, nil)
		mRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool {
			return f.Path == wantKey && f.CompanyID == "company-1" && f.UploadedBy == "user-1"
		})).Return(&model.File{ID: "file-1", Path: wantKey}, nil)

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{exe, ok})

		assert.NoError(t, err)
		assert.Len(t, res.Rejected, 1)
		assert.Contains(t, res.Rejected[0].Reasons[0], "not allowed")
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 0, res.Failed)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("N valid files yield N independent outcomes", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		inputs := []UploadInput{
			pngInput("a.png", "aa"),
			pngInput("b.png", "bb"),
			pngInput("c.png", "cc"),
		}

		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil).Times(3)
		mRepo.On("Create", mock.Anything, mock.Anything).
			Return(func(ctx context.Context, f *model.File) *model.File {
				out := *f
				out.ID = "id-" + f.Filename
				return &out
			}, nil).Times(3)

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", inputs)

		assert.NoError(t, err)
		assert.Len(t, res.Outcomes, 3)
		assert.Equal(t, 3, res.Succeeded)
		assert.Equal(t, 0, res.Failed)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("metadata failure triggers one compensating delete, sibling unaffected", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		good := pngInput("good.png", "good")
		bad := pngInput("bad.png", "bad")
		goodKey := "company_company-1/1700000000000-good.png"
		badKey := "company_company-1/1700000000000-bad.png"

		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil).Times(2)
		mRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool {
			return f.Path == goodKey
		})).Return(&model.File{ID: "ok", Path: goodKey}, nil)
		mRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *model.File) bool {
			return f.Path == badKey
		})).Return(nil, errors.New("db fail"))
		// Exactly one rollback, for the failed file's key only.
		mStore.On("Delete", mock.Anything, badKey).Return(nil).Once()

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{good, bad})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		for _, o := range res.Outcomes {
			if o.Filename == "bad.png" {
				assert.ErrorContains(t, o.Err, "save metadata failed")
			} else {
				assert.NoError(t, o.Err)
			}
		}
		mStore.AssertExpectations(t)
		mStore.AssertNumberOfCalls(t, "Delete", 1)
	})

	t.Run("rollback failure is reported alongside the insert failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
				return storage.ObjectInfo{Key: key}
			}, nil)
		mRepo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", mock.Anything, mock.Anything).Return(errors.New("delete fail"))

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{pngInput("a.png", "x")})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.ErrorContains(t, res.Outcomes[0].Err, "rollback delete failed")
	})

	t.Run("storage collision is a failure, not a silent replace", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{}, storage.ErrObjectExists)

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{pngInput("a.png", "x")})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.ErrorIs(t, res.Outcomes[0].Err, storage.ErrObjectExists)
		mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("second batch rejected while one is in flight", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		svc.uploading.Store(true)

		res, err := svc.UploadBatch(ctx, "company-1", "user-1", []UploadInput{pngInput("a.png", "x")})

		assert.ErrorIs(t, err, ErrUploadInFlight)
		assert.Nil(t, res)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFileService_PreviewURL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository)
		wantURL    string
		wantErr    error
	}{
		{
			name: "previewable image",
			id:   "file-1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "file-1").
					Return(&model.File{ID: "file-1", Mime: "image/png", Path: "p/a.png"}, nil)
				mStore.On("PresignGet", ctx, "p/a.png", 60*time.Second).
					Return("https://signed/a.png", nil)
			},
			wantURL: "https://signed/a.png",
		},
		{
			name: "non-previewable type never reaches storage",
			id:   "file-2",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "file-2").
					Return(&model.File{ID: "file-2", Mime: "application/zip", Path: "p/a.zip"}, nil)
			},
			wantErr: ErrNotPreviewable,
		},
		{
			name:       "empty id",
			id:         "",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "missing file",
			id:   "ghost",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockFileRepository)
			svc := newTestFileService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			url, err := svc.PreviewURL(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				mStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantURL, url)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestFileService_DownloadURL(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockFileRepository)
	svc := newTestFileService(mStore, mRepo)

	// Downloads are not restricted to previewable types.
	mRepo.On("FindByID", ctx, "file-1").
		Return(&model.File{ID: "file-1", Mime: "application/zip", Path: "p/a.zip"}, nil)
	mStore.On("PresignGet", ctx, "p/a.zip", 60*time.Second).
		Return("https://signed/a.zip", nil)

	url, err := svc.DownloadURL(ctx, "file-1")

	assert.NoError(t, err)
	assert.Equal(t, "https://signed/a.zip", url)
	mStore.AssertExpectations(t)
}

func TestFileService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "file-1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "file-1").Return(&model.File{ID: "file-1", Path: "p/a.png"}, nil)
				mStore.On("Delete", ctx, "p/a.png").Return(nil)
				mRepo.On("Delete", ctx, "file-1").Return(nil)
			},
		},
		{
			name: "storage failure does not block metadata delete",
			id:   "file-1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "file-1").Return(&model.File{ID: "file-1", Path: "p/a.png"}, nil)
				mStore.On("Delete", ctx, "p/a.png").Return(errors.New("storage down"))
				mRepo.On("Delete", ctx, "file-1").Return(nil)
			},
		},
		{
			name: "metadata delete failure propagates",
			id:   "file-1",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "file-1").Return(&model.File{ID: "file-1", Path: "p/a.png"}, nil)
				mStore.On("Delete", ctx, "p/a.png").Return(nil)
				mRepo.On("Delete", ctx, "file-1").Return(errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
		{
			name: "not found",
			id:   "ghost",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockFileRepository) {
				mRepo.On("FindByID", ctx, "ghost").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockFileRepository)
			svc := newTestFileService(mStore, mRepo)

			tt.setupMocks(mStore, mRepo)

			err := svc.Delete(ctx, tt.id)

			if tt.wantErr != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			} else {
				assert.NoError(t, err)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestFileService_PurgeNamespace(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes every listed object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		mStore.On("List", ctx, "company_c1/").Return([]storage.ObjectInfo{
			{Key: "company_c1/1-a.png"},
			{Key: "company_c1/2-b.pdf"},
		}, nil)
		mStore.On("Delete", ctx, "company_c1/1-a.png").Return(nil)
		mStore.On("Delete", ctx, "company_c1/2-b.pdf").Return(nil)

		err := svc.PurgeNamespace(ctx, "c1")

		assert.NoError(t, err)
		mStore.AssertNumberOfCalls(t, "Delete", 2)
	})

	t.Run("empty prefix is a no-op", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		mStore.On("List", ctx, "company_c1/").Return([]storage.ObjectInfo{}, nil)

		err := svc.PurgeNamespace(ctx, "c1")

		assert.NoError(t, err)
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing company id", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		err := svc.PurgeNamespace(ctx, "")

		assert.ErrorIs(t, err, ErrNoCompany)
		mStore.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("delete failure names the object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockFileRepository)
		svc := newTestFileService(mStore, mRepo)

		mStore.On("List", ctx, "company_c1/").Return([]storage.ObjectInfo{
			{Key: "company_c1/1-a.png"},
		}, nil)
		mStore.On("Delete", ctx, "company_c1/1-a.png").Return(errors.New("storage down"))

		err := svc.PurgeNamespace(ctx, "c1")

		assert.ErrorContains(t, err, "company_c1/1-a.png")
	})
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "50 MB", formatSize(50*1024*1024))
	assert.Equal(t, "1.5 KB", formatSize(1536))
}
