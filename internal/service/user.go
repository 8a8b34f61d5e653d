package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fileportal/internal/auth"
	"fileportal/internal/model"
	"fileportal/internal/repository"
)

var (
	ErrUserFieldsRequired = errors.New("email, password and role are required")
	ErrInvalidRole        = errors.New("role must be admin or company")
	ErrCompanyRequired    = errors.New("company selection is required for company users")
)

// UserInput carries the user-management form fields.
type UserInput struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
	CompanyID string     `json:"company_id"`
}

// UserUpdateInput carries the editable profile fields. The email is part of
// the identity and is not editable here.
type UserUpdateInput struct {
	Role      model.Role `json:"role"`
	CompanyID string     `json:"company_id"`
}

// Registrar is the slice of the auth service needed to create identities.
type Registrar interface {
	SignUp(ctx context.Context, email, password string, attrs auth.SignUpAttrs) (*model.Account, error)
}

// UserService is the admin user-management surface: explicit profile creation
// and removal. Deleting a user removes the profile row only; the identity
// account survives without application access.
type UserService interface {
	Create(ctx context.Context, in UserInput) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)

	// Update changes a user's role and company assignment.
	Update(ctx context.Context, id string, in UserUpdateInput) (*model.Profile, error)

	Delete(ctx context.Context, id string) error
}

type userService struct {
	registrar Registrar
	profiles  repository.ProfileRepository
}

// NewUserService constructs a new UserService.
func NewUserService(registrar Registrar, profiles repository.ProfileRepository) UserService {
	return &userService{registrar: registrar, profiles: profiles}
}

func (s *userService) Create(ctx context.Context, in UserInput) (*model.Profile, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, ErrUserFieldsRequired
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.Role == model.RoleCompany && in.CompanyID == "" {
		return nil, ErrCompanyRequired
	}
	if in.Role == model.RoleAdmin {
		in.CompanyID = ""
	}

	acc, err := s.registrar.SignUp(ctx, in.Email, in.Password, auth.SignUpAttrs{
		Role:      in.Role,
		CompanyID: in.CompanyID,
	})
	if err != nil {
		return nil, err
	}
	return s.profiles.FindByID(ctx, acc.ID)
}

func (s *userService) Update(ctx context.Context, id string, in UserUpdateInput) (*model.Profile, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.Role == model.RoleCompany && in.CompanyID == "" {
		return nil, ErrCompanyRequired
	}
	if in.Role == model.RoleAdmin {
		in.CompanyID = ""
	}

	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = in.Role
	p.CompanyID = in.CompanyID
	return s.profiles.Update(ctx, p)
}

func (s *userService) List(ctx context.Context) ([]model.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.profiles.Delete(ctx, id)
}
