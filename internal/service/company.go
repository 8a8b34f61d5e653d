package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"fileportal/internal/model"
	"fileportal/internal/repository"
)

var (
	ErrNameRequired    = errors.New("company name is required")
	ErrNameTooLong     = errors.New("company name must be less than 100 characters")
	ErrDomainTooLong   = errors.New("domain must be less than 100 characters")
	ErrDomainInvalid   = errors.New("invalid domain name")
	ErrCompanyHasFiles = errors.New("Company has existing files")
	ErrCompanyHasUsers = errors.New("Company has existing users")
)

// domainPattern accepts bare hostnames like acme.com or files.acme.co.uk.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9](?:\.[a-zA-Z]{2,})+$`)

// BulkDeleteResult is one company's outcome in a bulk delete.
type BulkDeleteResult struct {
	ID    string `json:"id"`
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// CompanyInput carries the mutable company attributes.
type CompanyInput struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// CompanyService is the registry over the companies entity: CRUD, validation,
// search, stats, and CSV export, with referential guards on delete.
type CompanyService interface {
	Create(ctx context.Context, in CompanyInput) (*model.Company, error)
	Get(ctx context.Context, id string) (*model.Company, error)
	List(ctx context.Context) ([]model.Company, error)
	Search(ctx context.Context, query string) ([]model.Company, error)
	ListWithStats(ctx context.Context) ([]model.CompanyStats, error)
	Update(ctx context.Context, id string, in CompanyInput) (*model.Company, error)

	// Delete refuses to remove a company that still owns files or users.
	// The dependents check is read-then-delete, not atomic.
	Delete(ctx context.Context, id string) error

	// BulkDelete applies Delete per ID. Each ID's outcome is independent;
	// a guarded company does not stop the rest of the batch.
	BulkDelete(ctx context.Context, ids []string) []BulkDeleteResult

	// ExportCSV writes all companies with their file counts as CSV.
	ExportCSV(ctx context.Context, w io.Writer) error
}

type companyService struct {
	repo repository.CompanyRepository
}

// NewCompanyService constructs a new CompanyService.
func NewCompanyService(repo repository.CompanyRepository) CompanyService {
	return &companyService{repo: repo}
}

// validateInput checks name/domain constraints and normalizes whitespace.
func validateInput(in *CompanyInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.TrimSpace(in.Domain)
	if in.Name == "" {
		return ErrNameRequired
	}
	if len(in.Name) > 100 {
		return ErrNameTooLong
	}
	if in.Domain != "" {
		if len(in.Domain) > 100 {
			return ErrDomainTooLong
		}
		if !domainPattern.MatchString(in.Domain) {
			return ErrDomainInvalid
		}
	}
	return nil
}

func (s *companyService) Create(ctx context.Context, in CompanyInput) (*model.Company, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &model.Company{Name: in.Name, Domain: in.Domain})
}

func (s *companyService) Get(ctx context.Context, id string) (*model.Company, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *companyService) List(ctx context.Context) ([]model.Company, error) {
	return s.repo.List(ctx)
}

func (s *companyService) Search(ctx context.Context, query string) ([]model.Company, error) {
	if strings.TrimSpace(query) == "" {
		return s.repo.List(ctx)
	}
	return s.repo.Search(ctx, query)
}

func (s *companyService) ListWithStats(ctx context.Context) ([]model.CompanyStats, error) {
	return s.repo.ListWithFileCounts(ctx)
}

func (s *companyService) Update(ctx context.Context, id string, in CompanyInput) (*model.Company, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	c, err := s.repo.Update(ctx, &model.Company{ID: id, Name: in.Name, Domain: in.Domain})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete checks files first, then users, then deletes. A dependent appearing
// between check and delete slips through; the window is accepted.
func (s *companyService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	hasFiles, err := s.repo.HasFiles(ctx, id)
	if err != nil {
		return fmt.Errorf("check company files: %w", err)
	}
	if hasFiles {
		return ErrCompanyHasFiles
	}
	hasUsers, err := s.repo.HasUsers(ctx, id)
	if err != nil {
		return fmt.Errorf("check company users: %w", err)
	}
	if hasUsers {
		return ErrCompanyHasUsers
	}
	return s.repo.Delete(ctx, id)
}

// BulkDelete deletes companies one by one, collecting per-ID outcomes.
func (s *companyService) BulkDelete(ctx context.Context, ids []string) []BulkDeleteResult {
	out := make([]BulkDeleteResult, len(ids))
	for i, id := range ids {
		out[i] = BulkDeleteResult{ID: id}
		if err := s.Delete(ctx, id); err != nil {
			out[i].Err = err
			out[i].Error = err.Error()
		}
	}
	return out
}

// ExportCSV writes Name, Domain, Created At and File Count rows for every company.
func (s *companyService) ExportCSV(ctx context.Context, w io.Writer) error {
	stats, err := s.repo.ListWithFileCounts(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Domain", "Created At", "File Count"}); err != nil {
		return err
	}
	for _, c := range stats {
		row := []string{c.Name, c.Domain, c.CreatedAt.Format("2006-01-02"), strconv.Itoa(c.FileCount)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
