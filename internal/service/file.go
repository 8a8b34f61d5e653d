package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"fileportal/internal/config"
	"fileportal/internal/model"
	"fileportal/internal/repository"
	"fileportal/internal/storage"
)

var (
	ErrIDRequired     = errors.New("id is required")
	ErrNotFound       = errors.New("not found")
	ErrNoCompany      = errors.New("company must be selected before uploading")
	ErrUploadInFlight = errors.New("upload already in progress")
	ErrNotPreviewable = errors.New("file type not supported for preview")
)

// UploadInput is one candidate file in an upload batch.
type UploadInput struct {
	Reader   io.Reader
	Filename string
	Mime     string
	Size     int64
}

// RejectedFile records a candidate that failed pre-flight validation.
// Rejected candidates never reach storage.
type RejectedFile struct {
	Filename string   `json:"filename"`
	Reasons  []string `json:"reasons"`
}

// UploadOutcome is the result of one accepted file's upload attempt.
type UploadOutcome struct {
	Filename string      `json:"filename"`
	File     *model.File `json:"file,omitempty"`
	Err      error       `json:"-"`
	Error    string      `json:"error,omitempty"`
}

// BatchResult aggregates a whole batch: pre-flight rejections plus one
// independent outcome per accepted file.
type BatchResult struct {
	Rejected  []RejectedFile  `json:"rejected,omitempty"`
	Outcomes  []UploadOutcome `json:"outcomes"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// FileService is the file ingestion workflow: validate, upload, record
// metadata, and hand out time-boxed signed URLs.
type FileService interface {
	// UploadBatch validates every candidate, then uploads the accepted ones
	// concurrently. Each file's outcome is independent; one file's failure
	// does not cancel or roll back its siblings. A second batch submitted
	// while one is in flight is rejected with ErrUploadInFlight.
	UploadBatch(ctx context.Context, companyID, uploadedBy string, inputs []UploadInput) (*BatchResult, error)

	// ListByCompany returns a company's files, newest first.
	ListByCompany(ctx context.Context, companyID string) ([]model.File, error)

	// Get returns a single file by its ID.
	Get(ctx context.Context, id string) (*model.File, error)

	// PreviewURL returns a signed URL for inline preview. Non-previewable
	// MIME types are rejected before any storage call.
	PreviewURL(ctx context.Context, id string) (string, error)

	// DownloadURL returns a signed URL for download.
	DownloadURL(ctx context.Context, id string) (string, error)

	// Delete removes a file: best-effort storage cleanup, then the
	// authoritative metadata row delete.
	Delete(ctx context.Context, id string) error

	// PurgeNamespace removes every stored object under a company's key
	// prefix. Run after the company's metadata rows are gone; anything
	// still there is an orphan from a failed rollback delete.
	PurgeNamespace(ctx context.Context, companyID string) error
}

type fileService struct {
	store     storage.Storage
	repo      repository.FileRepository
	cfg       config.UploadConfig
	uploading atomic.Bool
	now       func() time.Time
}

// NewFileService constructs a new FileService with the given upload policy.
func NewFileService(store storage.Storage, repo repository.FileRepository, cfg config.UploadConfig) FileService {
	return &fileService{store: store, repo: repo, cfg: cfg, now: time.Now}
}

// validate applies the upload policy to a single candidate. It returns the
// list of violations; an empty list means the candidate is accepted.
func (s *fileService) validate(in UploadInput) []string {
	var reasons []string
	if in.Size > s.cfg.MaxFileSize {
		reasons = append(reasons, fmt.Sprintf("file size exceeds %s limit", formatSize(s.cfg.MaxFileSize)))
	}
	if len(s.cfg.AllowedMimeTypes) > 0 && !contains(s.cfg.AllowedMimeTypes, in.Mime) {
		reasons = append(reasons, fmt.Sprintf("file type %s is not allowed", in.Mime))
	}
	return reasons
}

func (s *fileService) UploadBatch(ctx context.Context, companyID, uploadedBy string, inputs []UploadInput) (*BatchResult, error) {
	if companyID == "" {
		return nil, ErrNoCompany
	}

	// Single in-flight-batch guard, not a queue.
	if !s.uploading.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer s.uploading.Store(false)

	res := &BatchResult{}
	var accepted []UploadInput
	for _, in := range inputs {
		if reasons := s.validate(in); len(reasons) > 0 {
			res.Rejected = append(res.Rejected, RejectedFile{Filename: in.Filename, Reasons: reasons})
			continue
		}
		accepted = append(accepted, in)
	}

	// All accepted files go up concurrently; the batch waits for every
	// outcome before reporting.
	res.Outcomes = make([]UploadOutcome, len(accepted))
	var wg sync.WaitGroup
	for i, in := range accepted {
		wg.Add(1)
		go func(i int, in UploadInput) {
			defer wg.Done()
			f, err := s.uploadOne(ctx, companyID, uploadedBy, in)
			res.Outcomes[i] = UploadOutcome{Filename: in.Filename, File: f, Err: err}
			if err != nil {
				res.Outcomes[i].Error = err.Error()
			}
		}(i, in)
	}
	wg.Wait()

	for _, o := range res.Outcomes {
		if o.Err != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	return res, nil
}

// uploadOne moves a single accepted file into storage and records its
// metadata row. If the metadata insert fails, the just-uploaded object is
// removed again (best effort) before the insert failure propagates.
func (s *fileService) uploadOne(ctx context.Context, companyID, uploadedBy string, in UploadInput) (*model.File, error) {
	// Timestamp prefix avoids same-name collisions within a company namespace.
	key := fmt.Sprintf("company_%s/%d-%s", companyID, s.now().UnixMilli(), in.Filename)

	_, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.Mime,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	stored, err := s.repo.Create(ctx, &model.File{
		CompanyID:  companyID,
		Filename:   in.Filename,
		Path:       key,
		Mime:       in.Mime,
		Size:       in.Size,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("save metadata failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("save metadata failed: %w", err)
	}
	return stored, nil
}

// ListByCompany returns a company's files, newest first.
func (s *fileService) ListByCompany(ctx context.Context, companyID string) ([]model.File, error) {
	if companyID == "" {
		return nil, ErrNoCompany
	}
	return s.repo.ListByCompany(ctx, companyID)
}

// Get returns a file by ID.
func (s *fileService) Get(ctx context.Context, id string) (*model.File, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *fileService) PreviewURL(ctx context.Context, id string) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	// Previewability is decided before any storage call.
	if !contains(s.cfg.PreviewableTypes, f.Mime) {
		return "", ErrNotPreviewable
	}
	return s.store.PresignGet(ctx, f.Path, s.cfg.SignedURLExpiry)
}

func (s *fileService) DownloadURL(ctx context.Context, id string) (string, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.store.PresignGet(ctx, f.Path, s.cfg.SignedURLExpiry)
}

// Delete removes a file. Storage cleanup is best effort; the metadata row is
// authoritative, so only its deletion failure propagates.
func (s *fileService) Delete(ctx context.Context, id string) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.Path); err != nil {
		log.Printf("storage delete failed for %s, continuing with metadata delete: %v", f.Path, err)
	}
	return s.repo.Delete(ctx, id)
}

// PurgeNamespace sweeps a company's storage prefix clean.
func (s *fileService) PurgeNamespace(ctx context.Context, companyID string) error {
	if companyID == "" {
		return ErrNoCompany
	}
	objs, err := s.store.List(ctx, fmt.Sprintf("company_%s/", companyID))
	if err != nil {
		return fmt.Errorf("list company objects: %w", err)
	}
	for _, o := range objs {
		if err := s.store.Delete(ctx, o.Key); err != nil {
			return fmt.Errorf("purge %s: %w", o.Key, err)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// formatSize renders a byte count the way it is shown to users: 50 MB, 1.5 GB.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s %cB", trimZeros(fmt.Sprintf("%.2f", float64(n)/float64(div))), "KMGT"[exp])
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
