package model

import "time"

// Role determines which dashboard branch a signed-in user lands on.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCompany
}

// Profile is the application-level user record layered over an identity account.
// Its ID equals the account ID. A "company" role with an empty CompanyID cannot
// resolve a file list.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CompanyID string    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// CompanyName is populated by joined reads only; empty otherwise.
	CompanyName string `json:"company_name,omitempty"`
}

// Account is an identity record in the owned credential store.
// Deleting a profile does not delete the account; the identity survives
// without application access.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
