package model

import "time"

// Company is a tenant that owns users and files.
// This is a pure domain model with no database-specific dependencies or tags.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyStats is a company together with the number of files it owns.
type CompanyStats struct {
	Company
	FileCount int `json:"file_count"`
}
